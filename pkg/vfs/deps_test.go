package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInstallCommand(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"npm install lucide-react", []string{"lucide-react"}},
		{"npm install react react-dom", []string{"react", "react-dom"}},
		{"npm  install   -D  tailwindcss --save", []string{"tailwindcss"}},
		{"pnpm install zod", []string{"zod"}},
		{"npm install && npm run dev", nil},
		{"npm install axios && npm run dev", []string{"axios"}},
		{"cd app; npm install three | tee log", []string{"three"}},
		{"npm install a || npm install b", []string{"a", "b"}},
		{"sudo npm install -g serve", []string{"serve"}},
		{"npm run dev", nil},
		{"npm installer x", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInstallCommand(tt.command))
		})
	}
}
