package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestColdstartIsValidYAML(t *testing.T) {
	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(ColdstartYAML), &doc))
	for _, key := range []string{"modes", "commands", "config_commands", "token_commands", "error_behavior"} {
		assert.Contains(t, doc, key)
	}
}
