// Package action defines the vocabulary of build actions: the closed set of
// action kinds, the per-kind input records, and the registry mapping each
// kind to the module that implements it.
//
// A Spec is a tagged record. Its Kind names the action and exactly one input
// field is populated; the executor dispatches on the tag. Everything an
// action reads arrives in the BuildEnv it is handed, so handlers never
// consult ambient state.
package action
