package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatConnectionInfo(t *testing.T) {
	out, err := formatConnectionInfo(map[string]interface{}{"driver": "sqlite", "connected": true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"driver": "sqlite", "connected": true}`, out)
}

func TestFormatConnectionInfo_Unencodable(t *testing.T) {
	_, err := formatConnectionInfo(map[string]interface{}{"driver": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to marshal connection info")
}
