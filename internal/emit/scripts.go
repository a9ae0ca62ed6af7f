package emit

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/devenv-tools/devenv/internal/models"
)

// Shell selects the script dialect to emit.
type Shell string

const (
	Bash Shell = "bash"
	Fish Shell = "fish"
	Cmd  Shell = "cmd"
)

// BackupPrefix is the reserved prefix under which activation scripts save
// the prior value of every variable they touch. Deactivation restores from
// it, so user variables never collide with it.
const BackupPrefix = "DEVENV_BKP_"

// ScriptFile pairs an output filename with its shell dialect.
type ScriptFile struct {
	Name  string
	Shell Shell
}

// ScriptFiles returns the activation script set for the platform family:
// cmd batch files on Windows, bash and fish scripts elsewhere.
func ScriptFiles(windows bool) []ScriptFile {
	if windows {
		return []ScriptFile{{Name: "devenv-vars.bat", Shell: Cmd}}
	}
	return []ScriptFile{
		{Name: "devenv-vars.sh", Shell: Bash},
		{Name: "devenv-vars.fish", Shell: Fish},
	}
}

// Activate renders the activation script: every append variable has the
// merged path sequence prepended onto any pre-existing value, every
// overwrite variable is replaced, and every touched variable that existed
// beforehand is saved under the backup prefix first.
func Activate(env []models.EnvVar, sh Shell) (string, error) {
	switch sh {
	case Bash:
		return renderScript(bashActivatePreamble, bashActivateBody(env), "unset -f add_path"), nil
	case Fish:
		return renderScript(fishActivatePreamble, fishActivateBody(env), "functions --erase add_path"), nil
	case Cmd:
		return renderScript("@echo off", cmdActivateBody(env), ""), nil
	}
	return "", fmt.Errorf("unknown shell: %s", sh)
}

// Deactivate renders the exact inverse of Activate: variables with a
// backup are restored from it, variables that did not exist before
// activation are unset, and PATH entries are removed individually.
// Activating then deactivating leaves the environment bit-identical.
func Deactivate(env []models.EnvVar, sh Shell) (string, error) {
	switch sh {
	case Bash:
		return renderScript(bashDeactivatePreamble, bashDeactivateBody(env), "unset -f remove_path"), nil
	case Fish:
		return renderScript(fishDeactivatePreamble, fishDeactivateBody(env), "functions --erase remove_path"), nil
	case Cmd:
		return renderScript("@echo off", cmdDeactivateBody(env), ""), nil
	}
	return "", fmt.Errorf("unknown shell: %s", sh)
}

func renderScript(preamble, body, epilogue string) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{preamble, body, epilogue} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n") + "\n"
}

// sortedVars returns the variables in name order for stable script output.
func sortedVars(env []models.EnvVar) []models.EnvVar {
	out := append([]models.EnvVar(nil), env...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isPathList(ev models.EnvVar) bool {
	return ev.Name == "PATH" && ev.Value.Kind == models.EnvAppend
}

var shellSafePattern = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// posixQuote quotes a string for bash/fish the way shlex.quote does.
func posixQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafePattern.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

const bashActivatePreamble = `#!/bin/bash
function add_path {
    [[ ":$PATH:" != *":${1}:"* ]] && export PATH="${1}:${PATH}" || return 0
}`

const bashDeactivatePreamble = `#!/bin/bash
function remove_path() {
   local p=":$1:"
   local d=":$PATH:"
   d=${d//$p/:}
   d=${d/#:/}
   export PATH=${d/%:/}
}`

func bashActivateBody(env []models.EnvVar) string {
	var lines []string
	for _, ev := range sortedVars(env) {
		if isPathList(ev) {
			// Prepending in reverse keeps the declared order at the
			// front of PATH.
			for i := len(ev.Value.List) - 1; i >= 0; i-- {
				lines = append(lines, "add_path "+posixQuote(ev.Value.List[i]))
			}
			continue
		}
		value := ev.Value.Scalar
		if ev.Value.Kind == models.EnvAppend {
			value = strings.Join(append(append([]string(nil), ev.Value.List...), "${"+ev.Name+"}"), ":")
		}
		lines = append(lines,
			fmt.Sprintf("if [ ! -z ${%s+x} ]; then", ev.Name),
			fmt.Sprintf("    export %s%s=\"$%s\"", BackupPrefix, ev.Name, ev.Name),
			"fi",
			fmt.Sprintf("export %s=\"%s\"", ev.Name, value),
		)
	}
	return strings.Join(lines, "\n")
}

func bashDeactivateBody(env []models.EnvVar) string {
	var lines []string
	for _, ev := range sortedVars(env) {
		if isPathList(ev) {
			for _, entry := range ev.Value.List {
				lines = append(lines, "remove_path "+posixQuote(entry))
			}
			continue
		}
		lines = append(lines,
			fmt.Sprintf("if [ ! -z ${%s%s+x} ]; then", BackupPrefix, ev.Name),
			fmt.Sprintf("    export %s=\"$%s%s\"", ev.Name, BackupPrefix, ev.Name),
			fmt.Sprintf("    unset %s%s", BackupPrefix, ev.Name),
			"else",
			fmt.Sprintf("    unset %s", ev.Name),
			"fi",
		)
	}
	return strings.Join(lines, "\n")
}

const fishActivatePreamble = `function add_path
    if contains -- $argv[1] $PATH
        return
    end

    set PATH $argv[1] $PATH
end`

const fishDeactivatePreamble = `function remove_path
    if set -l index (contains -i $argv[1] $PATH)
        set --erase PATH[$index]
    end
end`

func fishActivateBody(env []models.EnvVar) string {
	var lines []string
	for _, ev := range sortedVars(env) {
		if isPathList(ev) {
			for i := len(ev.Value.List) - 1; i >= 0; i-- {
				lines = append(lines, "add_path "+posixQuote(ev.Value.List[i]))
			}
			continue
		}
		value := ev.Value.Scalar
		if ev.Value.Kind == models.EnvAppend {
			value = strings.Join(append(append([]string(nil), ev.Value.List...), "$"+ev.Name), ":")
		}
		lines = append(lines,
			fmt.Sprintf("if set -q %s", ev.Name),
			fmt.Sprintf("    set -gx %s%s $%s", BackupPrefix, ev.Name, ev.Name),
			"end",
			fmt.Sprintf("set -gx %s \"%s\"", ev.Name, value),
		)
	}
	return strings.Join(lines, "\n")
}

func fishDeactivateBody(env []models.EnvVar) string {
	var lines []string
	for _, ev := range sortedVars(env) {
		if isPathList(ev) {
			for _, entry := range ev.Value.List {
				lines = append(lines, "remove_path "+posixQuote(entry))
			}
			continue
		}
		lines = append(lines,
			fmt.Sprintf("if set -q %s%s", BackupPrefix, ev.Name),
			fmt.Sprintf("    set -gx %s $%s%s", ev.Name, BackupPrefix, ev.Name),
			fmt.Sprintf("    set -e %s%s", BackupPrefix, ev.Name),
			"else",
			fmt.Sprintf("    set -e %s", ev.Name),
			"end",
		)
	}
	return strings.Join(lines, "\n")
}

func cmdActivateBody(env []models.EnvVar) string {
	var lines []string
	for _, ev := range sortedVars(env) {
		value := ev.Value.Scalar
		if ev.Value.Kind == models.EnvAppend {
			// Lists prepend to the existing value.
			value = strings.Join(ev.Value.List, ";") + ";%" + ev.Name + "%"
		}
		lines = append(lines,
			fmt.Sprintf("if defined %s (set \"%s%s=%%%s%%\")", ev.Name, BackupPrefix, ev.Name, ev.Name),
			fmt.Sprintf("set \"%s=%s\"", ev.Name, value),
		)
	}
	return strings.Join(lines, "\n")
}

func cmdDeactivateBody(env []models.EnvVar) string {
	var lines []string
	for _, ev := range sortedVars(env) {
		// cmd activation backs up PATH like any other variable, so the
		// generic restore applies.
		lines = append(lines,
			fmt.Sprintf("if defined %s%s (", BackupPrefix, ev.Name),
			fmt.Sprintf("    set \"%s=%%%s%s%%\"", ev.Name, BackupPrefix, ev.Name),
			fmt.Sprintf("    set \"%s%s=\"", BackupPrefix, ev.Name),
			") else (",
			fmt.Sprintf("    set \"%s=\"", ev.Name),
			")",
		)
	}
	return strings.Join(lines, "\n")
}
