package tmdb

import (
	"context"
	"fmt"

	"github.com/lepinkainen/boxset/internal/cache"
)

// GetCollection fetches a collection's overview and parts.
// Cache key format: collection_{id}
func (c *Client) GetCollection(ctx context.Context, collectionID int) (*Collection, error) {
	cacheKey := fmt.Sprintf("collection_%d", collectionID)

	result, _, err := cache.GetOrFetch(c.cache, cache.TMDBTable, cacheKey, func() (*Collection, error) {
		var col Collection
		if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/collection/%d", collectionID), nil), &col); err != nil {
			return nil, fmt.Errorf("fetch collection %d: %w", collectionID, err)
		}
		return &col, nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetCollectionImages fetches the backdrop and poster catalog of a collection.
// Cache key format: collection_images_{id}
func (c *Client) GetCollectionImages(ctx context.Context, collectionID int) (*Images, error) {
	cacheKey := fmt.Sprintf("collection_images_%d", collectionID)

	result, _, err := cache.GetOrFetch(c.cache, cache.TMDBTable, cacheKey, func() (*Images, error) {
		var imgs Images
		if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/collection/%d/images", collectionID), nil), &imgs); err != nil {
			return nil, fmt.Errorf("fetch collection images %d: %w", collectionID, err)
		}
		return &imgs, nil
	}, func(imgs *Images) bool {
		return imgs != nil && (len(imgs.Backdrops) > 0 || len(imgs.Posters) > 0)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenreNames maps genre IDs to names, dropping unknown IDs and duplicates.
// Order follows first appearance in ids.
func (c *Client) GenreNames(ctx context.Context, ids []int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	genres, err := c.getGenres(ctx, "movie")
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if name, ok := genres[id]; ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// MovieStudios returns the production company names of a movie.
// Cache key format: movie_companies_{id}
func (c *Client) MovieStudios(ctx context.Context, movieID int) ([]string, error) {
	cacheKey := fmt.Sprintf("movie_companies_%d", movieID)

	result, _, err := cache.GetOrFetch(c.cache, cache.TMDBTable, cacheKey, func() (*movieCompanies, error) {
		var mc movieCompanies
		if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/movie/%d", movieID), nil), &mc); err != nil {
			return nil, fmt.Errorf("fetch movie %d: %w", movieID, err)
		}
		return &mc, nil
	}, nil)
	if err != nil {
		return nil, err
	}

	studios := make([]string, 0, len(result.ProductionCompanies))
	for _, company := range result.ProductionCompanies {
		if company.Name != "" {
			studios = append(studios, company.Name)
		}
	}
	return studios, nil
}

func (c *Client) getGenres(ctx context.Context, mediaType string) (map[int]string, error) {
	c.mu.RLock()
	if genres, ok := c.genreCache[mediaType]; ok {
		c.mu.RUnlock()
		return genres, nil
	}
	c.mu.RUnlock()

	response, _, err := cache.GetOrFetch(c.cache, cache.TMDBTable, "genres_"+mediaType, func() (*genreList, error) {
		var list genreList
		if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("/genre/%s/list", mediaType), nil), &list); err != nil {
			return nil, fmt.Errorf("fetch %s genres: %w", mediaType, err)
		}
		return &list, nil
	}, func(list *genreList) bool {
		return list != nil && len(list.Genres) > 0
	})
	if err != nil {
		return nil, err
	}

	result := make(map[int]string, len(response.Genres))
	for _, g := range response.Genres {
		result[g.ID] = g.Name
	}

	c.mu.Lock()
	c.genreCache[mediaType] = result
	c.mu.Unlock()

	return result, nil
}
