package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-gateway/pkg/errors"
)

func TestErrorRendersTypedError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Illegal("course is under review"))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "ILLEGAL_TRANSITION", body.Error.Code)
	assert.Equal(t, "course is under review", body.Error.Message)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestErrorHidesUntypedError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, fmt.Errorf("db password leaked"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestJSONWithMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, gin.H{"id": "c-1"}, map[string]interface{}{"corrected": true})

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "c-1", body["data"]["id"])
	assert.Equal(t, true, body["meta"]["corrected"])
}

func TestErrorEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("request_id", "req-42")

	Error(c, appErrors.Wrap(fmt.Errorf("dial tcp: refused"), appErrors.ErrNetworkFailure.Code, http.StatusBadGateway, "marketplace unreachable"))

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "req-42", body["meta"]["request_id"])
	assert.NotContains(t, w.Body.String(), "refused")
	require.Len(t, c.Errors, 1)
}
