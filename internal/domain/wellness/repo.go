package wellness

import "context"

type TipRepository interface {
	Latest(ctx context.Context, limit int) ([]*Tip, error)
	Create(ctx context.Context, t *Tip) error
}
