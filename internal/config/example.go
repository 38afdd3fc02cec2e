package config

// Example is a fully documented sample configuration, printed by
// `ccmaid config-example`. Place it at ~/.ccmaid.toml for user-level
// defaults or ./.ccmaid.toml for per-project overrides.
const Example = `# ccmaid configuration
# Search order: ~/.ccmaid.toml, then ./.ccmaid.toml (project overrides user).
# Command-line flags override both.

[cli]
# Log level: debug, info, warn, error
log_level = "info"
# Retry behavior when no retry flag is passed: disabled, auto, confirm.
retry_mode = "disabled"
# Answer every generation with a canned response instead of spawning the
# agent CLI. Useful for exercising the workflow without an agent installed.
mock_mode = false

[claude]
# Agent CLI binary to spawn for generation.
command = "claude"
# Model passed via --model. Empty uses the CLI's default.
model = "claude-sonnet-4-5-20250929"
# Seconds allowed per generation call.
timeout = 300
# Pass --permission-mode bypassPermissions to the agent CLI.
bypass_permissions = false

[iterations]
max_planning_iterations = 10
max_implementation_iterations = 20
max_refinement_iterations = 5
max_refactoring_iterations = 10

[directories]
# Where task manifests are created and discovered.
manifest_dir = "manifests"
# Where behavioral tests live.
test_dir = "tests"

[maid]
# Manifest validation binary.
command = "maid"
# Pass --use-manifest-chain when validating manifests.
use_manifest_chain = true
`
