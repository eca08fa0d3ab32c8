// Package file implements the configuration and prompt ports on the local
// filesystem.
//
//   - ConfigStore: the TOML config file edited by "kbassist config set"
//   - PromptStore: plain-text prompt overrides under ~/.kbassist/prompts
package file
