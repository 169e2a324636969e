package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
		D FlexString `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x1","b":12345,"c":null,"d":true}`), &v))
	assert.Equal(t, "x1", v.A.String())
	assert.Equal(t, "12345", v.B.String())
	assert.Equal(t, int64(12345), v.B.Int())
	assert.Equal(t, "", v.C.String())
	assert.Equal(t, "true", v.D.String())
}
