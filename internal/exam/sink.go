package exam

import (
	"context"

	"github.com/stemsi/exstem-proctor/internal/model"
)

// AttemptSink receives the record of every session that leaves the active state.
type AttemptSink interface {
	Record(ctx context.Context, rec model.AttemptRecord) error
}

type nopSink struct{}

func (nopSink) Record(context.Context, model.AttemptRecord) error { return nil }
