package workflow

import (
	"fmt"
	"strings"
)

const (
	releaseVersionFieldNameConstant   = "release version"
	branchRefsFieldNameConstant       = "branch refs"
	stateRewriteErrorTemplateConstant = "%s already recorded, refusing to overwrite"
)

// ForceTagDecision captures the operator's answer about moving an existing tag.
type ForceTagDecision string

const (
	// ForceTagUndecided means no tag conflict was found, so no answer was needed.
	ForceTagUndecided ForceTagDecision = "undecided"
	// ForceTagApproved means the operator approved reassigning the existing tag.
	ForceTagApproved ForceTagDecision = "approved"
	// ForceTagDeclined means the operator kept the existing tag in place.
	ForceTagDeclined ForceTagDecision = "declined"
)

// StateRewriteError reports an attempt to overwrite a write-once Context value.
type StateRewriteError struct {
	FieldName string
}

// Error describes the rejected overwrite.
func (rewriteError StateRewriteError) Error() string {
	return fmt.Sprintf(stateRewriteErrorTemplateConstant, rewriteError.FieldName)
}

// ContextOptions seeds the flags of a flow Context.
type ContextOptions struct {
	DryRun             bool
	AllowDirty         bool
	SkipBranchDeletion bool
	ProjectIdentifier  string
}

// Context carries the mutable state of one flow run. Values recorded by tasks
// are write-once; only the force-tag decision may be re-recorded.
type Context struct {
	dryRun             bool
	allowDirty         bool
	skipBranchDeletion bool
	projectIdentifier  string

	releaseVersion     string
	versionRecorded    bool
	localBranches      []string
	remoteBranches     []string
	branchRefsRecorded bool
	forceTagDecision   ForceTagDecision
}

// NewContext constructs the state for a single flow run.
func NewContext(options ContextOptions) *Context {
	return &Context{
		dryRun:             options.DryRun,
		allowDirty:         options.AllowDirty,
		skipBranchDeletion: options.SkipBranchDeletion,
		projectIdentifier:  strings.TrimSpace(options.ProjectIdentifier),
		forceTagDecision:   ForceTagUndecided,
	}
}

// IsDryRun reports whether mutating actions should be elided.
func (state *Context) IsDryRun() bool {
	return state.dryRun
}

// AllowsDirtyWorktree reports whether the working tree check should be skipped.
func (state *Context) AllowsDirtyWorktree() bool {
	return state.allowDirty
}

// SkipsBranchDeletion reports whether release branch cleanup should be skipped.
func (state *Context) SkipsBranchDeletion() bool {
	return state.skipBranchDeletion
}

// ProjectIdentifier returns the remote project identifier supplied for the run.
func (state *Context) ProjectIdentifier() string {
	return state.projectIdentifier
}

// RecordReleaseVersion stores the resolved release version exactly once.
func (state *Context) RecordReleaseVersion(version string) error {
	if state.versionRecorded {
		return StateRewriteError{FieldName: releaseVersionFieldNameConstant}
	}

	state.releaseVersion = strings.TrimSpace(version)
	state.versionRecorded = true
	return nil
}

// ReleaseVersion returns the recorded version and whether one was recorded.
func (state *Context) ReleaseVersion() (string, bool) {
	return state.releaseVersion, state.versionRecorded
}

// RecordBranchRefs stores the collected local and remote branch names exactly once.
func (state *Context) RecordBranchRefs(localBranches []string, remoteBranches []string) error {
	if state.branchRefsRecorded {
		return StateRewriteError{FieldName: branchRefsFieldNameConstant}
	}

	state.localBranches = append([]string(nil), localBranches...)
	state.remoteBranches = append([]string(nil), remoteBranches...)
	state.branchRefsRecorded = true
	return nil
}

// LocalBranches returns the recorded local branch names and whether refs were recorded.
func (state *Context) LocalBranches() ([]string, bool) {
	return append([]string(nil), state.localBranches...), state.branchRefsRecorded
}

// RemoteBranches returns the recorded remote branch names and whether refs were recorded.
func (state *Context) RemoteBranches() ([]string, bool) {
	return append([]string(nil), state.remoteBranches...), state.branchRefsRecorded
}

// RecordForceTagDecision stores the operator's tag reassignment answer. A later
// explicit answer replaces an earlier one.
func (state *Context) RecordForceTagDecision(decision ForceTagDecision) {
	state.forceTagDecision = decision
}

// ForceTagDecision returns the recorded tag reassignment answer.
func (state *Context) ForceTagDecision() ForceTagDecision {
	return state.forceTagDecision
}
