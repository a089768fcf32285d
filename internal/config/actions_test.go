package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"

	cfgpkg "github.com/dtnitsch/llm-page-context/pkg/config"
)

func TestDomainArg(t *testing.T) {
	assert.Equal(t, "example.com", domainArg("WWW.Example.com"))
	assert.Equal(t, "blog.example.com", domainArg("https://blog.example.com/post/1"))
	assert.Equal(t, "", domainArg("https://"))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify(nil))

	var exit cli.ExitCoder
	err := classify(fmt.Errorf("%w: nope.example", cfgpkg.ErrUnknownDomain))
	assert.True(t, errors.As(err, &exit))
	assert.Equal(t, 2, exit.ExitCode())

	err = classify(fmt.Errorf("%w: readability/zzz", cfgpkg.ErrUnknownTemplate))
	assert.True(t, errors.As(err, &exit))

	other := errors.New("disk full")
	assert.Equal(t, other, classify(other))
}

func TestMode(t *testing.T) {
	m, err := mode(" Text ")
	assert.NoError(t, err)
	assert.Equal(t, "text", string(m))

	_, err = mode("fancy")
	assert.Error(t, err)
}
