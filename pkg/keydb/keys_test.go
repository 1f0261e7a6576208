package keydb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "app:events", ChannelKey("app", "events"))
	assert.Equal(t, "app:jobs", QueueKey("app", "jobs"))
	assert.Equal(t, "app:jobs:dlq", DLQKey("app", "jobs"))
}

func TestKeys_EmptyNamespaceKeepsName(t *testing.T) {
	assert.Equal(t, "events", ChannelKey("", "events"))
	assert.Equal(t, "jobs", QueueKey("", "jobs"))
	assert.Equal(t, "jobs:dlq", DLQKey("", "jobs"))
}
