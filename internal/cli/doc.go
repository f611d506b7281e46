// Package cli defines the forgerig command-line surface: flag parsing,
// subcommand dispatch, and the mapping from run outcomes to process exit
// codes.
package cli
