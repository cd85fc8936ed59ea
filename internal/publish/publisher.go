package publish

// Metadata is the upload package for one rendered video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
	Platform    string
	Visibility  string
}
