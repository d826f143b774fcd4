package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/edgard/plexdiscordbot/internal/errors"
)

func TestCode(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "config", err: apperrors.NewConfigError("bad env", cause), want: apperrors.CodeConfig},
		{name: "fetch", err: apperrors.NewFetchError("plex down", cause), want: apperrors.CodeFetch},
		{name: "publish", err: apperrors.NewPublishError("discord down", cause), want: apperrors.CodePublish},
		{name: "database", err: apperrors.NewDatabaseError("locked", cause), want: apperrors.CodeDatabase},
		{name: "wrapped fetch", err: fmt.Errorf("cycle: %w", apperrors.NewFetchError("plex down", cause)), want: apperrors.CodeFetch},
		{name: "plain error", err: cause, want: apperrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, apperrors.Code(tt.err))
		})
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	t.Parallel()

	err := apperrors.NewFetchError("fetch section Movies", apperrors.ErrUnauthorized)

	assert.Equal(t, "fetch section Movies: unauthorized", err.Error())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.True(t, apperrors.IsFetch(err))
	assert.False(t, apperrors.IsPublish(err))

	noCause := apperrors.NewPublishError("channel missing", nil)
	assert.Equal(t, "channel missing", noCause.Error())
	assert.True(t, apperrors.IsPublish(noCause))
}
