package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag/v2"
)

func TestSwaggerDoc(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Swagger  string                    `json:"swagger"`
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Equal(t, "/api/v1", doc.BasePath)

	assert.Contains(t, doc.Paths["/orders/{id}/convert"], "post")
	assert.Contains(t, doc.Paths["/proforma-invoices/{id}/dispatches/{dispatch_id}"], "delete")
	assert.Contains(t, doc.Paths["/payment-records/{id}/verify"], "post")
	for path := range doc.Paths {
		assert.NotContains(t, path, "{documents}")
	}
}
