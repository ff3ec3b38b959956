package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create flow: %w", NotFound("flow %s not found", "f1"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindForbidden))

	assert.Equal(t, KindDependency, KindOf(errors.New("boom")))
}

func TestDependencyUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency(cause, "query flow")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(err.Kind))
}

func TestCollector(t *testing.T) {
	var c Collector
	assert.NoError(t, c.Err())

	c.Check(true, "title", "不能为空")
	c.Check(false, "goal", "必须大于0")
	c.Add("currency", "不支持的币种 %s", "BTC")

	err := c.Err()
	require.Error(t, err)
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Len(t, e.Violations, 2)
	assert.Equal(t, "goal", e.Violations[0].Field)
	assert.Contains(t, err.Error(), "BTC")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(KindForbidden))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindInvalidState))
}
