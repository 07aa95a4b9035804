package repository

import (
	"reflect"
	"testing"
)

func TestUniqueIDs(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "duplicates_are_dropped",
			input:    []string{"room-1", "room-2", "room-1", "room-1"},
			expected: []string{"room-1", "room-2"},
		},
		{
			name:     "first_seen_order_is_kept",
			input:    []string{"b", "a", "b", "c", "a"},
			expected: []string{"b", "a", "c"},
		},
		{
			name:     "already_unique_input_is_unchanged",
			input:    []string{"room-1", "room-2"},
			expected: []string{"room-1", "room-2"},
		},
		{
			name:     "empty_input",
			input:    []string{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uniqueIDs(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("uniqueIDs(%v) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
