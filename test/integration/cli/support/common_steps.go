package support

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/qrlens/cmd/qrlens/cmd"
	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/scan"
	"github.com/MeKo-Tech/qrlens/internal/utils"
)

// splitArgs splits a command line on whitespace. Single quotes group words.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '\'':
			quoted = !quoted
			started = true
		case (r == ' ' || r == '\t') && !quoted:
			if started {
				args = append(args, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated quote in %q", line)
	}
	if started {
		args = append(args, current.String())
	}
	return args, nil
}

// run executes a qrlens command line in-process.
func (testCtx *TestContext) run(line, stdin string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	}
	if len(args) == 0 || args[0] != "qrlens" {
		return fmt.Errorf("command must start with qrlens: %q", line)
	}

	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args[1:])

	testCtx.LastCommand = line
	testCtx.LastError = root.ExecuteContext(context.Background())
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	return nil
}

func (testCtx *TestContext) iRunCommand(line string) error {
	return testCtx.run(line, "")
}

func (testCtx *TestContext) iRunCommandWithInput(line, input string) error {
	return testCtx.run(line, input)
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\nstderr: %s", testCtx.LastCommand, testCtx.LastError, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded, expected failure\noutput: %s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(want string) error {
	if !strings.Contains(testCtx.LastOutput, want) {
		return fmt.Errorf("output does not contain %q:\n%s", want, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(unwanted string) error {
	if strings.Contains(testCtx.LastOutput, unwanted) {
		return fmt.Errorf("output unexpectedly contains %q:\n%s", unwanted, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(want string) error {
	if testCtx.LastError == nil {
		return errors.New("command did not fail")
	}
	text := testCtx.LastError.Error() + "\n" + testCtx.LastStderr
	if !strings.Contains(text, want) {
		return fmt.Errorf("error does not mention %q: %s", want, text)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON:\n%s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidCSVWithRows(rows int) error {
	records, err := csv.NewReader(strings.NewReader(testCtx.LastOutput)).ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if got := len(records) - 1; got != rows {
		return fmt.Errorf("expected %d data rows, got %d", rows, got)
	}
	return nil
}

// lookupJSON walks a dotted path such as "images.0.payload.kind".
func lookupJSON(doc any, path string) (any, error) {
	cur := doc
	for _, key := range strings.Split(path, ".") {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[key]
			if !ok {
				return nil, fmt.Errorf("missing key %q in path %s", key, path)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(v) {
				return nil, fmt.Errorf("bad index %q in path %s", key, path)
			}
			cur = v[i]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", cur, key)
		}
	}
	return cur, nil
}

func jsonFieldEquals(body, path, want string) error {
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w\n%s", err, body)
	}
	got, err := lookupJSON(doc, path)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != want {
		return fmt.Errorf("field %s = %q, want %q", path, s, want)
	}
	return nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(path, want string) error {
	return jsonFieldEquals(testCtx.LastOutput, path, want)
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, want string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), want) {
		return fmt.Errorf("%s does not contain %q", name, want)
	}
	return nil
}

// theImageShouldDecodeTo scans an image file with the default pipeline.
func (testCtx *TestContext) theImageShouldDecodeTo(name, want string) error {
	img, _, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	res, err := scan.New(scan.DefaultConfig(), barcode.NewBackend()).DecodeImage(context.Background(), img)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if res.Text != want {
		return fmt.Errorf("%s decodes to %q, want %q", name, res.Text, want)
	}
	return nil
}

// RegisterCommonSteps registers command execution and output steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^I run "([^"]*)" with input "([^"]*)"$`, testCtx.iRunCommandWithInput)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)

	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the output should be valid CSV with (\d+) rows?$`, testCtx.theOutputShouldBeValidCSVWithRows)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)

	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the image "([^"]*)" should decode to "([^"]*)"$`, testCtx.theImageShouldDecodeTo)
}
