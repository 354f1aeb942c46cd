package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutatorApply(t *testing.T) {
	tests := []struct {
		name    string
		mutator Mutator
		cmd     string
		want    string
	}{
		{
			name:    "none leaves command unchanged",
			mutator: Mutator{Name: "plain", Kind: MutatorNone},
			cmd:     "systemctl restart nginx",
			want:    "systemctl restart nginx",
		},
		{
			name:    "append flag",
			mutator: Mutator{Name: "force", Kind: MutatorAppendFlag, Param: "--force"},
			cmd:     "rm /tmp/x",
			want:    "rm /tmp/x --force",
		},
		{
			name:    "append flag without param is a no-op",
			mutator: Mutator{Name: "force", Kind: MutatorAppendFlag},
			cmd:     "rm /tmp/x",
			want:    "rm /tmp/x",
		},
		{
			name:    "wrap retry",
			mutator: Mutator{Name: "retry", Kind: MutatorWrapRetry, Param: "3"},
			cmd:     "apt-get update",
			want:    "for i in $(seq 1 3); do apt-get update && break; sleep 1; done",
		},
		{
			name:    "substitute param",
			mutator: Mutator{Name: "swap", Kind: MutatorSubstitute, Param: "restart=reload"},
			cmd:     "systemctl restart nginx",
			want:    "systemctl reload nginx",
		},
		{
			name:    "substitute with malformed param is a no-op",
			mutator: Mutator{Name: "swap", Kind: MutatorSubstitute, Param: "restart"},
			cmd:     "systemctl restart nginx",
			want:    "systemctl restart nginx",
		},
		{
			name:    "timeout verbose",
			mutator: Mutator{Name: "tv", Kind: MutatorTimeoutVerbose, Param: "10"},
			cmd:     "fsck /dev/sda1",
			want:    "timeout 10 fsck /dev/sda1 --verbose",
		},
		{
			name:    "timeout verbose default seconds",
			mutator: Mutator{Name: "tv", Kind: MutatorTimeoutVerbose},
			cmd:     "fsck /dev/sda1",
			want:    "timeout 30 fsck /dev/sda1 --verbose",
		},
		{
			name:    "unknown kind degrades to none",
			mutator: Mutator{Name: "future", Kind: MutatorKind("hologram")},
			cmd:     "true",
			want:    "true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mutator.Apply(tt.cmd))
		})
	}
}

func TestMutatorRetryCount(t *testing.T) {
	assert.Equal(t, 1, Mutator{Kind: MutatorNone}.RetryCount())
	assert.Equal(t, 1, Mutator{Kind: MutatorAppendFlag, Param: "-f"}.RetryCount())
	assert.Equal(t, 5, Mutator{Kind: MutatorWrapRetry, Param: "5"}.RetryCount())
	assert.Equal(t, 3, Mutator{Kind: MutatorWrapRetry, Param: "bogus"}.RetryCount())
	assert.Equal(t, 3, Mutator{Kind: MutatorWrapRetry, Param: "0"}.RetryCount())

	assert.True(t, Mutator{Kind: MutatorWrapRetry}.Retry())
	assert.False(t, Mutator{Kind: MutatorAppendFlag}.Retry())
}
