package snapshot

import (
	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/pkg/concurrent"
)

// reporter logs recoverable failures and keeps them for the operation result.
type reporter struct {
	logger log.Log
	errs   concurrent.Collector[error]
}

func (r *reporter) report(msg string, err error, fields ...log.Field) {
	r.logger.Warn(msg, append(fields, log.Error(err))...)
	r.errs.Add(err)
}

func (r *reporter) errors() []error {
	if r.errs.Len() == 0 {
		return nil
	}
	return r.errs.Items()
}
