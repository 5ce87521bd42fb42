package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-d", "dsn", "-x", "junk"},
			allowed: []string{"-d"},
			want:    []string{"-d", "dsn"},
		},
		{
			name:    "equals form",
			args:    []string{"--database=dsn", "--other=1"},
			allowed: []string{"--database"},
			want:    []string{"--database=dsn"},
		},
		{
			name:    "flag without value",
			args:    []string{"-v", "-d", "dsn"},
			allowed: []string{"-v"},
			want:    []string{"-v"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "1", "-b", "2"},
			allowed: []string{"-z"},
			want:    []string{},
		},
		{
			name:    "value resembling flag is not swallowed",
			args:    []string{"-d", "-dsn"},
			allowed: []string{"-d"},
			want:    []string{"-d"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterArgs(tc.args, tc.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	os.Args = []string{"test", "-c", "conf.json"}
	assert.Equal(t, "conf.json", JsonConfigFlags())

	os.Args = []string{"test"}
	assert.Equal(t, "", JsonConfigFlags())
}
