package triage

import "testing"

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     int
		wantFind bool
	}{
		{
			name:     "colon separated",
			body:     "Error: 4042 occurred",
			want:     4042,
			wantFind: true,
		},
		{
			name:     "colon with surrounding spaces",
			body:     "Error : 101 machine down",
			want:     101,
			wantFind: true,
		},
		{
			name:     "dash separated",
			body:     "fault-77 reported by the device",
			want:     77,
			wantFind: true,
		},
		{
			name:     "space separated",
			body:     "code 9 shown on the panel",
			want:     9,
			wantFind: true,
		},
		{
			name:     "first match wins",
			body:     "Error: 1 then Error: 2",
			want:     1,
			wantFind: true,
		},
		{
			name:     "no digits",
			body:     "no digits here",
			wantFind: false,
		},
		{
			name:     "digits without leading word",
			body:     "12345",
			wantFind: false,
		},
		{
			name:     "empty body",
			body:     "",
			wantFind: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := ExtractCode(tt.body)
			if found != tt.wantFind {
				t.Fatalf("ExtractCode(%q) found = %v, want %v", tt.body, found, tt.wantFind)
			}
			if found && got != tt.want {
				t.Errorf("ExtractCode(%q) = %d, want %d", tt.body, got, tt.want)
			}
		})
	}
}
