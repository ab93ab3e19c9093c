package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestSentinelsMatchByKind(t *testing.T) {
	err := NotFound(errors.New("missing"), "document abc not found")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.Equal(t, "document abc not found: missing", err.Error())
}

func TestWrapKeepsKind(t *testing.T) {
	inner := Upstream(errors.New("quota exceeded"), "embed query")
	wrapped := Wrap(fmt.Errorf("retrieve: %w", inner), "workflow execution failed")

	assert.ErrorIs(t, wrapped, ErrUpstream)
	assert.Equal(t, KindUpstream, KindOf(wrapped))
	assert.Equal(t, http.StatusBadGateway, StatusOf(wrapped))
	assert.Contains(t, wrapped.Error(), "quota exceeded")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), "format")

	assert.Equal(t, KindInternal, KindOf(wrapped))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestKindNames(t *testing.T) {
	assert.Equal(t, "validation_error", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "extraction_error", KindExtraction.String())
	assert.Equal(t, "upstream_error", KindUpstream.String())
	assert.Equal(t, "server_error", KindInternal.String())
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))
	assert.ErrorIs(t, WrapRedis(redis.Nil), ErrNotFound)
	assert.ErrorIs(t, WrapRedis(errors.New("connection refused")), ErrUpstream)
}
