// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ConfigLoadFailedId Id = iota + 1
	ModuleMisconfiguredId
	TaskNotFoundId
	DependencyCycleId
	ToolCommandFailedId
	ViolationGateFailedId
	NoPublishDestinationId
	SigningFailedId
	IncludedBuildFailedId
	VersionCatalogInvalidId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is the Markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a Markdown guide for a class of failures.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the guide for a terminal. stylePath is a glamour style
// name ("dark", "light", "notty") or a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range slices.Concat(i.docLinks, i.extLinks) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the workspace configuration!

relgate reads ` + "`relgate.cue`" + ` from the workspace root (or the file given with ` + "`--config`" + `).

## Things you can try:
- Print the effective configuration:
~~~
$ relgate config show
~~~
- Check the CUE syntax and the field names against the example below.

## Example configuration:
~~~cue
workspace: {
	umbrella: "glide"
	format_exclusions: ["third_party", "gif_decoder"]
}
modules: [
	{name: "library", path: "library", kind: "android-library",
	 capabilities: ["android", "android-library", "maven-publish"],
	 variants: [{name: "debug", build_type: "debug"}, {name: "release", build_type: "release"}]},
]
~~~`,
	}

	moduleMisconfiguredIssue = &Issue{
		id: ModuleMisconfiguredId,
		mdMsg: `
# Module is misconfigured!

A module declares a combination of kind and capabilities that cannot be built.

## Common causes:
- ` + "`kind: \"android-library\"`" + ` without the ` + "`android`" + ` capability
- an Android module without any build variant
- the ` + "`maven-publish`" + ` capability without a ` + "`publication`" + ` block

Fix the module entry and run ` + "`relgate tasks`" + ` to confirm the graph wires.`,
	}

	taskNotFoundIssue = &Issue{
		id: TaskNotFoundId,
		mdMsg: `
# Task not found!

Task paths are absolute: ` + "`:publish`" + ` for the root, ` + "`:module:task`" + ` for module tasks.

## Things you can try:
~~~
$ relgate tasks
~~~`,
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The requested tasks depend on each other in a loop, so no execution order exists.
Check custom ` + "`depends_on`" + ` entries in the included builds and module tool commands.`,
	}

	toolCommandFailedIssue = &Issue{
		id: ToolCommandFailedId,
		mdMsg: `
# Tool command failed!

A formatter or analyzer command exited with a non-zero status before producing its report.
Analysis tasks ignore their own findings, so this usually means the tool could not run at all.

## Things you can try:
- Run the command from the module directory by hand
- Check the ` + "`tools`" + ` section of ` + "`relgate.cue`",
	}

	violationGateFailedIssue = &Issue{
		id: ViolationGateFailedId,
		mdMsg: `
# Violation gate failed!

Every analysis finding at or above the severity floor counts, and the gate tolerates none.
Publication is blocked until the reports are clean.

## Things you can try:
- Read the verbose report printed above
- Re-run the analysis for one module:
~~~
$ relgate run :library:check
~~~`,
	}

	noPublishDestinationIssue = &Issue{
		id: NoPublishDestinationId,
		mdMsg: `
# No publishing destination!

` + "`publish`" + ` was requested but no remote repository is active. Repositories are
only registered when their credentials resolve.

## Things you can try:
~~~
$ relgate credentials
~~~
- Provide ` + "`streemAccessKey`/`streemSecretKey`" + ` (or an AWS profile) for the private repository
- Provide ` + "`sonatypeUsername`/`sonatypeApiKey`" + ` for the staging repository
- Use ` + "`publishToMavenLocal`" + ` to publish into the local Maven cache instead`,
	}

	signingFailedIssue = &Issue{
		id: SigningFailedId,
		mdMsg: `
# Signing failed!

The ` + "`signingKey`" + ` credential must be an ASCII-armored PGP private key without passphrase.
Unset it to publish unsigned artifacts.`,
	}

	includedBuildFailedIssue = &Issue{
		id: IncludedBuildFailedId,
		mdMsg: `
# Included build failed!

A task of an included build (for example ` + "`compiler`" + `) failed, which blocks the root
task that depends on it. Run the included build on its own to see its output.`,
	}

	versionCatalogInvalidIssue = &Issue{
		id: VersionCatalogInvalidId,
		mdMsg: `
# Version catalog is invalid!

Included-build versions referenced with ` + "`version_ref`" + ` are read from the
` + "`[versions]`" + ` table of the TOML version catalog and must be valid semantic versions.`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():      configLoadFailedIssue,
		moduleMisconfiguredIssue.Id():   moduleMisconfiguredIssue,
		taskNotFoundIssue.Id():          taskNotFoundIssue,
		dependencyCycleIssue.Id():       dependencyCycleIssue,
		toolCommandFailedIssue.Id():     toolCommandFailedIssue,
		violationGateFailedIssue.Id():   violationGateFailedIssue,
		noPublishDestinationIssue.Id():  noPublishDestinationIssue,
		signingFailedIssue.Id():         signingFailedIssue,
		includedBuildFailedIssue.Id():   includedBuildFailedIssue,
		versionCatalogInvalidIssue.Id(): versionCatalogInvalidIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	ids := slices.Sorted(maps.Keys(issues))
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
