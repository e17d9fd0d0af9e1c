package job

import (
	"context"
	"fmt"

	"github.com/phrazzld/recipe-forge/internal/domain"
	"github.com/phrazzld/recipe-forge/internal/generation"
)

// Kind identifies a job
type Kind string

// Job kinds
const (
	KindRecipe    Kind = "recipe"
	KindTranslate Kind = "translate"
	KindImages    Kind = "images"
	KindEmbed     Kind = "embed"
)

// ParseKind validates a job kind name.
func ParseKind(name string) (Kind, error) {
	switch k := Kind(name); k {
	case KindRecipe, KindTranslate, KindImages, KindEmbed:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Job is the part every kind shares.
type Job interface {
	Kind() Kind

	// Extension is the artifact file extension, without the dot
	Extension() string

	// Fields returns the fields an item must resolve before its artifact can
	// be written. An error means the item cannot be processed at all.
	Fields(item *domain.WorkItem) ([]domain.FieldKey, error)
}

// ChatJob is a job whose fields are each generated by one chat completion.
// Chat jobs can run through the batch path.
type ChatJob interface {
	Job

	// Request builds the provider request for one field of an item
	Request(item *domain.WorkItem, field domain.FieldKey) (generation.ChatRequest, error)

	// Encode renders a complete item as its artifact
	Encode(item *domain.WorkItem) ([]byte, error)
}

// ArtifactJob is a job that produces its artifact in a single call and only
// runs through the worker pool.
type ArtifactJob interface {
	Job
	Process(ctx context.Context, item *domain.WorkItem) ([]byte, error)
}

// Rejection is an item whose fields could not be determined.
type Rejection struct {
	Item *domain.WorkItem
	Err  error
}

// Prepare sets the required fields of every item, keeping input order. Items
// whose fields cannot be determined are returned separately with the cause.
func Prepare(j Job, items []*domain.WorkItem) ([]*domain.WorkItem, []Rejection) {
	ready := make([]*domain.WorkItem, 0, len(items))
	var rejected []Rejection
	for _, item := range items {
		fields, err := j.Fields(item)
		if err != nil {
			rejected = append(rejected, Rejection{Item: item, Err: err})
			continue
		}
		item.Require(fields...)
		ready = append(ready, item)
	}
	return ready, rejected
}
