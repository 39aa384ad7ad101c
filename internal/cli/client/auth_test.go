package client

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthLogin_StoresCredentials(t *testing.T) {
	useTempConfig(t)
	var out bytes.Buffer

	require.NoError(t, runAuthLogin(&out, testKey, "http://tariffs.example.com"))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, testKey, config.APIKey)
	assert.Equal(t, "http://tariffs.example.com", config.APIURL)
	assert.Contains(t, out.String(), "Credentials saved")
}

func TestAuthLogin_ValidatesKeyFormat(t *testing.T) {
	useTempConfig(t)

	err := runAuthLogin(&bytes.Buffer{}, "invalid_key", defaultAPIURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key format")

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestAuthLoginCmd_ReadsKeyFromStdin(t *testing.T) {
	useTempConfig(t)
	cmd := AuthLoginCmd()
	cmd.SetIn(strings.NewReader(testKey + "\n"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, testKey, config.APIKey)
}

func TestAuthLogoutCmd(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: testKey}))

	cmd := AuthLogoutCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestWriteAuthStatus_JSON(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, writeAuthStatus(&out, SourceGlobalConfig, testKey, defaultAPIURL, true))

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, true, result["configured"])
	assert.Equal(t, "global_config", result["source"])
	assert.Equal(t, "aq_0123...cdef", result["api_key"])
}

func TestWriteAuthStatus_None(t *testing.T) {
	var out bytes.Buffer

	require.NoError(t, writeAuthStatus(&out, SourceNone, "", "", false))
	assert.Contains(t, out.String(), "No API key configured")
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "aq_0123...cdef", maskAPIKey(testKey))
	assert.Equal(t, "***", maskAPIKey("short"))
}
