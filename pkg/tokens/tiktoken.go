package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding covers models tiktoken has no mapping for.
const fallbackEncoding = "cl100k_base"

// TiktokenCounter counts tokens exactly with the BPE encoding of the model.
// Encoders are loaded lazily and cached per model name.
type TiktokenCounter struct {
	mu    sync.RWMutex
	cache map[string]*tiktoken.Tiktoken
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{cache: make(map[string]*tiktoken.Tiktoken)}
}

// Count implements Counter.
func (c *TiktokenCounter) Count(text, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	tkm, err := c.encoder(model)
	if err != nil {
		return 0, err
	}
	return len(tkm.Encode(text, nil, nil)), nil
}

func (c *TiktokenCounter) encoder(model string) (*tiktoken.Tiktoken, error) {
	key := strings.ToLower(strings.TrimSpace(model))

	c.mu.RLock()
	if tkm, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return tkm, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if tkm, ok := c.cache[key]; ok {
		return tkm, nil
	}

	tkm, err := tiktoken.EncodingForModel(key)
	if err != nil {
		tkm, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("error loading %s encoding: %w", fallbackEncoding, err)
		}
	}
	c.cache[key] = tkm
	return tkm, nil
}
