package tmdb

// ImageURL constructs the full image URL from a file path.
func (c *Client) ImageURL(filePath string) string {
	if filePath == "" {
		return ""
	}
	return c.imageBaseURL + filePath
}

// SelectImage picks the English-tagged entry if there is one, otherwise the
// first entry in provider order. It returns "" for an empty catalog.
func SelectImage(images []Image) string {
	for _, img := range images {
		if img.Language == "en" && img.FilePath != "" {
			return img.FilePath
		}
	}
	for _, img := range images {
		if img.FilePath != "" {
			return img.FilePath
		}
	}
	return ""
}
