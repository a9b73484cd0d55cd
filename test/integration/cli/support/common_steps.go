package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// iRunCommand executes a command and stores stdout and stderr separately.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substituteCommandVariables(command)

	testCtx.LastCommand = command
	testCtx.LastStartTime = time.Now()

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.WorkingDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastDuration = time.Since(testCtx.LastStartTime)

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}

	return nil
}

// substituteCommandVariables replaces placeholders in command strings.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{temp_dir}", testCtx.TempDir)
}

// theCommandShouldSucceed verifies the command succeeded.
func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nStdout: %s\nStderr: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

// theCommandShouldFail verifies the command failed.
func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldContain verifies stdout contains specific text.
func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	expectedText = testCtx.substituteCommandVariables(expectedText)
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldNotContain verifies stdout lacks specific text.
func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeEmpty verifies nothing was written to stdout.
func (testCtx *TestContext) theOutputShouldBeEmpty() error {
	if strings.TrimSpace(testCtx.LastOutput) != "" {
		return fmt.Errorf("expected empty output, got: %s", testCtx.LastOutput)
	}
	return nil
}

// stderrShouldContain verifies stderr contains specific text.
func (testCtx *TestContext) stderrShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastStderr, expectedText) {
		return fmt.Errorf("stderr does not contain '%s'\nActual stderr: %s", expectedText, testCtx.LastStderr)
	}
	return nil
}

// theOutputShouldBeValidJSON verifies stdout is a single JSON document.
func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(strings.TrimSpace(testCtx.LastOutput))) {
		return fmt.Errorf("output is not valid JSON: %s", testCtx.LastOutput)
	}
	return nil
}

// theOutputShouldBeValidCSVWithRows verifies the CSV row count, header excluded.
func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	if len(records) == 0 || records[0][0] != "source" {
		return fmt.Errorf("CSV output has no header: %s", testCtx.LastOutput)
	}
	if got := len(records) - 1; got != rows {
		return fmt.Errorf("expected %d CSV rows, got %d", rows, got)
	}
	return nil
}

// jsonValue resolves a dotted path in the JSON held by LastOutput.
func (testCtx *TestContext) jsonValue(field string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(strings.TrimSpace(testCtx.LastOutput)), &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w\nOutput: %s", err, testCtx.LastOutput)
	}

	parts := strings.Split(field, ".")
	current := data
	for i, part := range parts {
		switch node := current.(type) {
		case map[string]any:
			val, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(parts[:i+1], "."))
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("invalid index '%s' for array of %d", part, len(node))
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("cannot navigate into non-object field '%s'", strings.Join(parts[:i], "."))
		}
	}
	return current, nil
}

// theJSONShouldContain verifies the JSON has the given field.
func (testCtx *TestContext) theJSONShouldContain(field string) error {
	_, err := testCtx.jsonValue(field)
	return err
}

// theJSONShouldNotContain verifies the JSON lacks the given field.
func (testCtx *TestContext) theJSONShouldNotContain(field string) error {
	if _, err := testCtx.jsonValue(field); err == nil {
		return fmt.Errorf("field '%s' unexpectedly present in JSON", field)
	}
	return nil
}

// theJSONFieldShouldBe compares the printed value of a JSON field.
func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	val, err := testCtx.jsonValue(field)
	if err != nil {
		return err
	}
	expected = testCtx.substituteCommandVariables(expected)
	if got := fmt.Sprint(val); got != expected {
		return fmt.Errorf("field '%s' is %q, expected %q", field, got, expected)
	}
	return nil
}

// theErrorShouldMention verifies stderr or the error mentions the text.
func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil && testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}

	fullErrorText := testCtx.LastStderr + " " + testCtx.LastOutput
	if testCtx.LastError != nil {
		fullErrorText += " " + testCtx.LastError.Error()
	}

	if !strings.Contains(strings.ToLower(fullErrorText), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual error: %s", errorText, fullErrorText)
	}
	return nil
}

// theFileShouldExist verifies a file exists.
func (testCtx *TestContext) theFileShouldExist(filename string) error {
	filename = testCtx.resolvePath(filename)
	if _, err := os.Stat(filename); err != nil {
		return fmt.Errorf("file %s does not exist: %w", filename, err)
	}
	return nil
}

// theFileShouldContain verifies a file contains the expected text.
func (testCtx *TestContext) theFileShouldContain(filename, expectedContent string) error {
	filename = testCtx.resolvePath(filename)
	content, err := os.ReadFile(filename) //nolint:gosec // G304: paths come from feature files
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if !strings.Contains(string(content), expectedContent) {
		return fmt.Errorf("file %s does not contain '%s'", filename, expectedContent)
	}
	return nil
}

// theFilesShouldBeIdentical compares two files byte for byte.
func (testCtx *TestContext) theFilesShouldBeIdentical(a, b string) error {
	ca, err := os.ReadFile(testCtx.resolvePath(a))
	if err != nil {
		return err
	}
	cb, err := os.ReadFile(testCtx.resolvePath(b))
	if err != nil {
		return err
	}
	if !bytes.Equal(ca, cb) {
		return fmt.Errorf("files %s and %s differ", a, b)
	}
	return nil
}

// resolvePath expands placeholders and anchors relative paths at the temp dir.
func (testCtx *TestContext) resolvePath(path string) string {
	path = testCtx.substituteCommandVariables(path)
	if !filepath.IsAbs(path) {
		path = testCtx.TempPath(path)
	}
	return path
}

// registerCommandSteps registers command execution and result verification steps.
func (testCtx *TestContext) registerCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
}

// registerOutputSteps registers output verification steps.
func (testCtx *TestContext) registerOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be empty$`, testCtx.theOutputShouldBeEmpty)
	sc.Step(`^stderr should contain "([^"]*)"$`, testCtx.stderrShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, testCtx.theOutputShouldBeValidCSVWithRows)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON should not contain "([^"]*)"$`, testCtx.theJSONShouldNotContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
}

// registerErrorSteps registers error verification steps.
func (testCtx *TestContext) registerErrorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
}

// registerFileSteps registers file verification steps.
func (testCtx *TestContext) registerFileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the files "([^"]*)" and "([^"]*)" should be identical$`, testCtx.theFilesShouldBeIdentical)
}

// RegisterCommonSteps registers all common step definitions.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	testCtx.registerCommandSteps(sc)
	testCtx.registerOutputSteps(sc)
	testCtx.registerErrorSteps(sc)
	testCtx.registerFileSteps(sc)
}
