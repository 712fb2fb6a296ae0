// Package recipe loads recipe directories and tracks whether they changed
// since their last successful build.
//
// A recipe is a directory containing a recipe.yaml definition plus any
// files the build needs. Forge keeps its own state in a .forge metadata
// directory inside the recipe: the build log, persisted build options, the
// checksum of the last successful build, the retrieved result archive and
// the lock file path the recipe lock is keyed by.
//
// The checksum covers every file of the recipe except the metadata and
// vagrant state directories, so a rebuild is required exactly when the
// recipe content changed.
package recipe
