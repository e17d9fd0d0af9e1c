package gemini

import (
	"context"
	"fmt"

	"github.com/phrazzld/recipe-forge/internal/generation"
	"google.golang.org/genai"
)

// GenerateImage implements generation.ImageGenerator. It requests a single
// image in the configured MIME type and returns its bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	cfg := &genai.GenerateImagesConfig{
		NumberOfImages:   1,
		OutputMIMEType:   c.config.ImageMIMEType,
		IncludeRAIReason: true,
	}

	return callWithRetry(ctx, c, "generate_images", func(ctx context.Context) ([]byte, error) {
		resp, err := c.models.GenerateImages(ctx, c.config.ImageModel, prompt, cfg)
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0] == nil {
			return nil, fmt.Errorf("%w: no image returned", generation.ErrInvalidResponse)
		}

		img := resp.GeneratedImages[0]
		if img.RAIFilteredReason != "" {
			return nil, fmt.Errorf("%w: %s", generation.ErrContentBlocked, img.RAIFilteredReason)
		}
		if img.Image == nil || len(img.Image.ImageBytes) == 0 {
			return nil, fmt.Errorf("%w: image without data", generation.ErrInvalidResponse)
		}
		return img.Image.ImageBytes, nil
	})
}
