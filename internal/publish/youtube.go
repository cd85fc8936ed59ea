package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubePublisher uploads rendered videos via the YouTube Data API v3.
type YouTubePublisher struct {
	logger            zerolog.Logger
	clientSecretsPath string
	tokenPath         string
}

// NewYouTubePublisher returns a publisher, or nil when credentials are not
// configured; publishing is then skipped and the storage URL is the result.
func NewYouTubePublisher(logger zerolog.Logger, clientSecretsPath, tokenPath string) *YouTubePublisher {
	if clientSecretsPath == "" || tokenPath == "" {
		return nil
	}
	return &YouTubePublisher{
		logger:            logger.With().Str("component", "publisher").Logger(),
		clientSecretsPath: clientSecretsPath,
		tokenPath:         tokenPath,
	}
}

// Publish uploads videoFile with the given metadata and returns the watch URL.
func (p *YouTubePublisher) Publish(ctx context.Context, videoFile string, meta Metadata) (string, error) {
	client, err := p.oauthClient(ctx)
	if err != nil {
		return "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	visibility := meta.Visibility
	if visibility == "" {
		visibility = "public"
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: visibility,
		},
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	p.logger.Info().Str("title", meta.Title).Msg("uploading to youtube")

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)
	uploaded, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	url := "https://www.youtube.com/watch?v=" + uploaded.Id
	p.logger.Info().Str("url", url).Msg("published")
	return url, nil
}

// oauthClient builds an authorized HTTP client from the stored installed-app
// credentials and refresh token.
func (p *YouTubePublisher) oauthClient(ctx context.Context) (*http.Client, error) {
	secrets, err := os.ReadFile(p.clientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	cfg, err := google.ConfigFromJSON(secrets, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	tokenData, err := os.ReadFile(p.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	return cfg.Client(ctx, &token), nil
}
