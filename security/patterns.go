package security

import "regexp"

// ThreatType categorizes a matched dangerous construct.
type ThreatType string

const (
	ThreatCodeInjection       ThreatType = "code_injection"
	ThreatSystemCompromise    ThreatType = "system_compromise"
	ThreatPrivilegeEscalation ThreatType = "privilege_escalation"
	ThreatNetworkAttack       ThreatType = "network_attack"
	ThreatDataExfiltration    ThreatType = "data_exfiltration"
	ThreatFileSystemAttack    ThreatType = "filesystem_attack"
	ThreatResourceAbuse       ThreatType = "resource_abuse"
)

// threatPattern is one row of the fixed scan table.
type threatPattern struct {
	re         *regexp.Regexp
	threat     ThreatType
	severity   int
	desc       string
	mitigation string
}

// dangerousPatterns is the ordered table of hard violations. Every row
// is evaluated on every scan; matching any row classifies the content
// as unsafe regardless of dialect.
var dangerousPatterns = []threatPattern{
	{
		re:         regexp.MustCompile(`(?i)\beval\s*\(`),
		threat:     ThreatCodeInjection,
		severity:   9,
		desc:       "dynamic code evaluation via eval(",
		mitigation: "replace dynamic evaluation with explicit logic",
	},
	{
		re:         regexp.MustCompile(`(?i)\bexec\s*\(`),
		threat:     ThreatCodeInjection,
		severity:   9,
		desc:       "dynamic code execution via exec(",
		mitigation: "replace dynamic execution with explicit logic",
	},
	{
		re:         regexp.MustCompile(`(?i)\brm\s+-rf\s+/`),
		threat:     ThreatSystemCompromise,
		severity:   10,
		desc:       "recursive forced removal rooted at /",
		mitigation: "operate only on paths inside the plugin's own directory",
	},
	{
		re:         regexp.MustCompile(`(?i)\bsudo\s`),
		threat:     ThreatPrivilegeEscalation,
		severity:   8,
		desc:       "privilege escalation via sudo",
		mitigation: "plugins must run without elevated privileges",
	},
	{
		re:         regexp.MustCompile(`(?i)\bcurl\b[^|\n]*\|\s*(?:sh|bash|zsh)\b`),
		threat:     ThreatNetworkAttack,
		severity:   9,
		desc:       "remote script piped from curl into a shell",
		mitigation: "bundle required code instead of fetching and executing it",
	},
	{
		re:         regexp.MustCompile(`(?i)\bwget\b[^|\n]*\|\s*(?:sh|bash|zsh)\b`),
		threat:     ThreatNetworkAttack,
		severity:   9,
		desc:       "remote script piped from wget into a shell",
		mitigation: "bundle required code instead of fetching and executing it",
	},
	{
		re:         regexp.MustCompile(`(?i)\bscp\s+[^\n]*\S@`),
		threat:     ThreatDataExfiltration,
		severity:   7,
		desc:       "file copy to a remote host via scp",
		mitigation: "plugins must not transfer data to remote hosts",
	},
	{
		re:         regexp.MustCompile(`(?i)\brsync\s+[^\n]*\S@`),
		threat:     ThreatDataExfiltration,
		severity:   7,
		desc:       "file sync to a remote host via rsync",
		mitigation: "plugins must not transfer data to remote hosts",
	},
	{
		re:         regexp.MustCompile(`(?i)/etc/passwd`),
		threat:     ThreatFileSystemAttack,
		severity:   8,
		desc:       "access to the system account database",
		mitigation: "plugins must not read system credential files",
	},
	{
		re:         regexp.MustCompile(`(?i)\.ssh/(?:id_rsa|id_dsa|id_ecdsa|id_ed25519)`),
		threat:     ThreatFileSystemAttack,
		severity:   8,
		desc:       "access to an SSH private key",
		mitigation: "plugins must not read private key material",
	},
	{
		re:         regexp.MustCompile(`(?i)\bwhile\s+(?:true|1)\b|\bfor\s*\(\s*;\s*;\s*\)`),
		threat:     ThreatResourceAbuse,
		severity:   6,
		desc:       "unbounded loop",
		mitigation: "bound every loop with an explicit termination condition",
	},
	{
		re:         regexp.MustCompile(`(?i)\bfork\s*\(`),
		threat:     ThreatResourceAbuse,
		severity:   7,
		desc:       "process creation via fork(",
		mitigation: "plugins must not spawn processes",
	},
	{
		re:         regexp.MustCompile(`(?i)\bspawn\s*\(`),
		threat:     ThreatResourceAbuse,
		severity:   6,
		desc:       "process creation via spawn(",
		mitigation: "plugins must not spawn processes",
	},
}

// warningSeverity is the fixed severity of dialect heuristic findings.
const warningSeverity = 3

// pythonRiskyImports flags modules that grant filesystem, process or
// serialization primitives. Importing one is risk-adjacent but
// legitimate, so these surface as warnings rather than violations.
var pythonRiskyImports = regexp.MustCompile(`(?im)^\s*(?:import\s+(?:os|sys|subprocess|importlib|ctypes|pickle|marshal|shelve|dill)\b|from\s+(?:os|sys|subprocess|importlib|ctypes|pickle|marshal|shelve|dill)\b)`)

// pythonDynamicImport flags runtime import machinery.
var pythonDynamicImport = regexp.MustCompile(`(?i)__import__\s*\(|importlib\.import_module\s*\(`)

// shellSubstitution flags command substitution in shell scripts.
var shellSubstitution = regexp.MustCompile("`[^`]+`" + `|\$\([^)]*\)`)

// shellAdminCommands flags destructive or permission-weakening admin
// commands in shell scripts.
var shellAdminCommands = regexp.MustCompile(`(?i)(?:^|[\s;|&])(?:dd\s|mkfs\b|chmod\s+777\b|kill\s+-9\b)`)

// jsRequire flags CommonJS module loading in JavaScript content.
var jsRequire = regexp.MustCompile(`(?i)\brequire\s*\(`)

// jsGlobalAccess flags DOM and global object access in JavaScript
// content.
var jsGlobalAccess = regexp.MustCompile(`\b(?:document|window|globalThis)\s*[.\[]`)
