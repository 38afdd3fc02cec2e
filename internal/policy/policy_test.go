package policy

import (
	"strings"
	"testing"
)

type fakeConfirmer struct {
	answer bool
	asked  int
	prompt string
}

func (f *fakeConfirmer) Confirm(prompt string) bool {
	f.asked++
	f.prompt = prompt
	return f.answer
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name      string
		mode      RetryMode
		current   int
		max       int
		confirm   bool
		want      bool
		wantAsked int
	}{
		{
			name:    "budget exhausted in auto mode",
			mode:    RetryAuto,
			current: 10,
			max:     10,
			want:    false,
		},
		{
			name:    "budget exceeded in auto mode",
			mode:    RetryAuto,
			current: 11,
			max:     10,
			want:    false,
		},
		{
			name:    "disabled never retries",
			mode:    RetryDisabled,
			current: 1,
			max:     10,
			want:    false,
		},
		{
			name:    "auto retries below budget",
			mode:    RetryAuto,
			current: 5,
			max:     10,
			want:    true,
		},
		{
			name:      "confirm with affirmative answer",
			mode:      RetryConfirm,
			current:   3,
			max:       10,
			confirm:   true,
			want:      true,
			wantAsked: 1,
		},
		{
			name:      "confirm with decline",
			mode:      RetryConfirm,
			current:   3,
			max:       10,
			confirm:   false,
			want:      false,
			wantAsked: 1,
		},
		{
			name:    "confirm at budget does not ask",
			mode:    RetryConfirm,
			current: 10,
			max:     10,
			confirm: true,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeConfirmer{answer: tt.confirm}
			r := NewRetry(tt.mode, fc)
			got := r.ShouldRetry(tt.current, tt.max, "Test error")
			if got != tt.want {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v", tt.current, tt.max, got, tt.want)
			}
			if fc.asked != tt.wantAsked {
				t.Errorf("confirmer asked %d times, want %d", fc.asked, tt.wantAsked)
			}
		})
	}
}

func TestShouldRetryConfirmPromptNamesError(t *testing.T) {
	fc := &fakeConfirmer{answer: true}
	r := NewRetry(RetryConfirm, fc)
	r.ShouldRetry(2, 5, "tests failed: assert 1 == 2\nlong traceback follows")

	if !strings.Contains(fc.prompt, "2/5") {
		t.Errorf("prompt should name the iteration budget, got %q", fc.prompt)
	}
	if !strings.Contains(fc.prompt, "tests failed: assert 1 == 2") {
		t.Errorf("prompt should carry the first error line, got %q", fc.prompt)
	}
	if strings.Contains(fc.prompt, "traceback") {
		t.Errorf("prompt should not carry the full error text, got %q", fc.prompt)
	}
}

func TestShouldRestoreFiles(t *testing.T) {
	t.Run("first iteration never restores", func(t *testing.T) {
		if ShouldRestoreFiles(1, ContextIncremental) {
			t.Error("ShouldRestoreFiles(1, incremental) = true, want false")
		}
		if ShouldRestoreFiles(1, ContextFreshStart) {
			t.Error("ShouldRestoreFiles(1, fresh-start) = true, want false")
		}
	})

	t.Run("incremental never restores", func(t *testing.T) {
		for iteration := 2; iteration <= 5; iteration++ {
			if ShouldRestoreFiles(iteration, ContextIncremental) {
				t.Errorf("ShouldRestoreFiles(%d, incremental) = true, want false", iteration)
			}
		}
	})

	t.Run("fresh start restores on every retry", func(t *testing.T) {
		for iteration := 2; iteration <= 5; iteration++ {
			if !ShouldRestoreFiles(iteration, ContextFreshStart) {
				t.Errorf("ShouldRestoreFiles(%d, fresh-start) = false, want true", iteration)
			}
		}
	})
}

func TestParseRetryMode(t *testing.T) {
	tests := []struct {
		in      string
		want    RetryMode
		wantErr bool
	}{
		{in: "auto", want: RetryAuto},
		{in: "DISABLED", want: RetryDisabled},
		{in: "Confirm", want: RetryConfirm},
		{in: "sometimes", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRetryMode(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseRetryMode(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRetryMode(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRetryMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStdinConfirmer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "yes word", input: "Yes\n", want: true},
		{name: "no", input: "n\n", want: false},
		{name: "empty line declines", input: "\n", want: false},
		{name: "eof declines", input: "", want: false},
		{name: "garbage declines", input: "maybe\n", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			c := StdinConfirmer{In: strings.NewReader(tt.input), Out: &out}
			if got := c.Confirm("Retry? "); got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if out.String() != "Retry? " {
				t.Errorf("prompt written = %q", out.String())
			}
		})
	}
}
