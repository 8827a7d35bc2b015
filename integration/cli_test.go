package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// buildCLI compiles the emend binary into a temp dir
func buildCLI(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping CLI test in short mode")
	}

	binaryPath := filepath.Join(t.TempDir(), "emend-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../cmd/emend")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build CLI: %v\nOutput: %s", err, output)
	}
	return binaryPath
}

// TestCLIBuild tests that the CLI binary can be built
func TestCLIBuild(t *testing.T) {
	binaryPath := buildCLI(t)

	info, err := os.Stat(binaryPath)
	if err != nil {
		t.Fatalf("Failed to stat binary: %v", err)
	}
	if info.Mode()&0111 == 0 {
		t.Error("Binary should be executable")
	}
}

// TestCLIVersion tests the version command
func TestCLIVersion(t *testing.T) {
	binaryPath := buildCLI(t)

	cmd := exec.Command(binaryPath, "version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Version command failed: %v\nOutput: %s", err, output)
	}

	outputStr := string(output)
	if !strings.Contains(outputStr, "emend version") {
		t.Errorf("Version output should contain 'emend version'\nOutput: %s", outputStr)
	}
}

// TestCLIHelp tests the help command and flag
func TestCLIHelp(t *testing.T) {
	binaryPath := buildCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{"help command", []string{"help"}},
		{"help flag", []string{"--help"}},
		{"short help flag", []string{"-h"}},
		{"clean help", []string{"clean", "--help"}},
		{"score help", []string{"score", "--help"}},
		{"dict help", []string{"dict", "--help"}},
		{"dict prune help", []string{"dict", "prune", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, _ := cmd.CombinedOutput()

			outputStr := string(output)
			if !strings.Contains(outputStr, "Usage:") && !strings.Contains(outputStr, "Available Commands") {
				t.Errorf("Help output should contain usage information\nOutput: %s", outputStr)
			}
		})
	}
}

// TestCLIFlagParsing tests that documented flags are recognized
func TestCLIFlagParsing(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	tests := []struct {
		name  string
		flags []string
	}{
		{"clean output flag", []string{"clean", "--output", filepath.Join(tmpDir, "out.txt"), "--help"}},
		{"clean vocab flag", []string{"clean", "--vocab", "dasein,aporia", "--help"}},
		{"clean learn flag", []string{"clean", "--learn", "--help"}},
		{"clean reocr flag", []string{"clean", "--reocr", "--help"}},
		{"clean stats flag", []string{"clean", "--stats", "--help"}},
		{"score correct flag", []string{"score", "--correct", "--help"}},
		{"score preset flag", []string{"score", "--preset", "aggressive", "--help"}},
		{"dict prune threshold flag", []string{"dict", "prune", "--min-sightings", "5", "--help"}},
		{"log-level flag", []string{"clean", "--log-level", "debug", "--help"}},
		{"config flag", []string{"clean", "--config", "/tmp/config.yaml", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.flags...)
			output, _ := cmd.CombinedOutput()

			if strings.Contains(string(output), "unknown flag") {
				t.Errorf("Flag should be recognized\nOutput: %s", output)
			}
		})
	}
}

// TestCLICleanFile runs clean over a noisy text file end to end
func TestCLICleanFile(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	inputPath := filepath.Join(tmpDir, "page.txt")
	text := "It was a beautlful morning in the city.\n"
	if err := os.WriteFile(inputPath, []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	outPath := filepath.Join(tmpDir, "clean.txt")
	cmd := exec.Command(binaryPath, "clean", inputPath,
		"--output", outPath,
		"--stats",
		"--dict", filepath.Join(tmpDir, "learned.yaml"))
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Clean command failed: %v\nOutput: %s", err, output)
	}

	// The text path flags errors without rewriting them
	if !strings.Contains(string(output), "Words flagged: 1") {
		t.Errorf("Stats should report one flagged word\nOutput: %s", output)
	}

	cleaned, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if string(cleaned) != text {
		t.Errorf("Cleaned text = %q, want input unchanged %q", cleaned, text)
	}
}

// TestCLICleanStdin pipes clean text through the pipeline
func TestCLICleanStdin(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	text := "A beautiful morning.\n"
	cmd := exec.Command(binaryPath, "clean", "--dict", filepath.Join(tmpDir, "learned.yaml"))
	cmd.Stdin = strings.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Clean command failed: %v\nStderr: %s", err, stderr.String())
	}
	if stdout.String() != text {
		t.Errorf("Stdout = %q, want %q", stdout.String(), text)
	}
}

// TestCLIScoreReport checks the quality report fields
func TestCLIScoreReport(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	inputPath := filepath.Join(tmpDir, "page.txt")
	if err := os.WriteFile(inputPath, []byte("The beautlful morning came.\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	cmd := exec.Command(binaryPath, "score", inputPath,
		"--dict", filepath.Join(tmpDir, "learned.yaml"))
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Score command failed: %v\nOutput: %s", err, output)
	}

	outputStr := string(output)
	for _, want := range []string{"Score:", "Estimated error rate:", "Words examined:", "beautlful"} {
		if !strings.Contains(outputStr, want) {
			t.Errorf("Report should contain %q\nOutput: %s", want, outputStr)
		}
	}
}

// TestCLIScoreCorrect checks that --correct rewrites the text
func TestCLIScoreCorrect(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	inputPath := filepath.Join(tmpDir, "page.txt")
	if err := os.WriteFile(inputPath, []byte("The beautlful mornin came.\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	cmd := exec.Command(binaryPath, "score", inputPath, "--correct",
		"--dict", filepath.Join(tmpDir, "learned.yaml"))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Score command failed: %v\nStderr: %s", err, stderr.String())
	}

	if !strings.Contains(stdout.String(), "The beautiful morning came.") {
		t.Errorf("Corrected text = %q, want both errors fixed", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Applied: 2") {
		t.Errorf("Stats should report two applied corrections\nStderr: %s", stderr.String())
	}
}

// TestCLIDictWorkflow learns a word over three runs, lists it, and
// prunes it back out
func TestCLIDictWorkflow(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	dictPath := filepath.Join(tmpDir, "learned.yaml")
	inputPath := filepath.Join(tmpDir, "page.txt")
	if err := os.WriteFile(inputPath, []byte("The grundnorm held.\n"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	// Three sightings cross the default acceptance threshold
	for i := 0; i < 3; i++ {
		cmd := exec.Command(binaryPath, "clean", inputPath, "--learn", "--dict", dictPath)
		if output, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("Clean run %d failed: %v\nOutput: %s", i+1, err, output)
		}
	}

	cmd := exec.Command(binaryPath, "dict", "list", "--dict", dictPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Dict list failed: %v\nOutput: %s", err, output)
	}
	outputStr := string(output)
	if !strings.Contains(outputStr, "grundnorm") || !strings.Contains(outputStr, "accepted") {
		t.Errorf("List should show grundnorm as accepted\nOutput: %s", outputStr)
	}

	// The default threshold keeps it
	cmd = exec.Command(binaryPath, "dict", "prune", "--dict", dictPath)
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Dict prune failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "Nothing to prune") {
		t.Errorf("Prune at default threshold should keep the word\nOutput: %s", output)
	}

	// A stricter bar removes it
	cmd = exec.Command(binaryPath, "dict", "prune", "--min-sightings", "5", "--dict", dictPath)
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Dict prune failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "Pruned 1 of 1") {
		t.Errorf("Strict prune should remove the word\nOutput: %s", output)
	}

	cmd = exec.Command(binaryPath, "dict", "list", "--dict", dictPath)
	output, err = cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Dict list failed: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(string(output), "No learned words") {
		t.Errorf("List after prune should be empty\nOutput: %s", output)
	}
}

// TestCLIConfigFile tests config file usage
func TestCLIConfigFile(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
log-level: debug
dict-learned-path: ` + filepath.Join(tmpDir, "learned.yaml") + `
detect-min-confidence: 0.5
correction-preset: balanced
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cmd := exec.Command(binaryPath, "clean", "--config", configPath)
	cmd.Stdin = strings.NewReader("morning\n")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.Fatalf("Clean with config file failed: %v\nStderr: %s", err, stderr.String())
	}
	if stdout.String() != "morning\n" {
		t.Errorf("Stdout = %q, want %q", stdout.String(), "morning\n")
	}
}

// TestCLIInvalidConfig tests error handling for a bad config value
func TestCLIInvalidConfig(t *testing.T) {
	binaryPath := buildCLI(t)
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("log-level: shouting\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cmd := exec.Command(binaryPath, "clean", "--config", configPath)
	cmd.Stdin = strings.NewReader("morning\n")
	output, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatal("Clean with invalid config should fail")
	}
	if !strings.Contains(string(output), "log-level") {
		t.Errorf("Error should name the bad setting\nOutput: %s", output)
	}
}

// TestCLIInvalidCommand tests error handling for invalid commands
func TestCLIInvalidCommand(t *testing.T) {
	binaryPath := buildCLI(t)

	cmd := exec.Command(binaryPath, "invalid-command")
	output, _ := cmd.CombinedOutput()

	outputStr := string(output)
	if !strings.Contains(outputStr, "unknown command") && !strings.Contains(outputStr, "Error") {
		t.Errorf("Should show error for invalid command\nOutput: %s", outputStr)
	}
}
