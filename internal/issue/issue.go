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
	TenantSetInvalidId
	UnknownTenantId
	InventoryInvalidId
	BaseTsConfigNotFoundId
	BaseTsConfigInvalidId
	OutputWriteFailedId
	PermissionDeniedId
)

type (
	// Id identifies a catalog entry.
	Id int

	// MarkdownMsg is Markdown text rendered through glamour.
	MarkdownMsg string

	// HttpLink is a documentation URL.
	HttpLink string

	// Issue is a catalog entry with remediation guidance.
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

// Render renders the guidance with the named glamour style ("dark",
// "light", "notty", or a JSON style path).
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
# Failed to load configuration!

variantc merges its settings from these sources, later ones winning:
1. built-in defaults
2. the ` + "`config`" + ` block of ` + "`package.json`" + `
3. ` + "`variantc.cue`" + ` in the project directory, or the file given with ` + "`--config`" + `
4. ` + "`VARIANTC_*`" + ` and ` + "`npm_package_config_*`" + ` environment variables

## Things you can try:
- Check the CUE syntax of your config file
- Print the effective configuration:
~~~
$ variantc config show
~~~

- Write a starting point to edit:
~~~
$ variantc config dump > variantc.cue
~~~`,
	}

	tenantSetInvalidIssue = &Issue{
		id: TenantSetInvalidId,
		mdMsg: `
# No usable tenant list!

The tenant (manufacturer) list is empty or names the same tenant twice.
Tenants are compared case-insensitively.

## Things you can try:
- Declare the tenants in variantc.cue:
~~~cue
tenants: ["honda", "toyota"]
~~~

- Or keep the npm convention in package.json:
~~~json
"config": { "manufacturers": "honda;toyota" }
~~~`,
	}

	unknownTenantIssue = &Issue{
		id: UnknownTenantId,
		mdMsg: `
# Unknown tenant!

The requested tenant is not part of the configured tenant list.

## Things you can try:
- List the configured tenants:
~~~
$ variantc tenants
~~~

- Omit ` + "`--tenant`" + ` to build the default (first) tenant`,
	}

	inventoryInvalidIssue = &Issue{
		id: InventoryInvalidId,
		mdMsg: `
# The override inventory was rejected!

Override files must be named ` + "`<module>.<tenant>.ts`" + ` and every inventory
is resolved in ascending byte order without duplicates.

## Things you can try:
- Check for files that do not carry the configured extension
- Run with ` + "`--verbose`" + ` to see which entry was rejected
- Switch the alias rule if your project relies on the historic naming:
~~~
$ variantc --alias-rule legacy resolve
~~~`,
	}

	baseTsConfigNotFoundIssue = &Issue{
		id: BaseTsConfigNotFoundId,
		mdMsg: `
# Base tsconfig not found!

Generated tsconfig files are projected from a base file that must exist.

## Things you can try:
- Set ` + "`tsConfigBasePath`" + ` in variantc.cue or package.json
- Run variantc from the project root, or pass ` + "`--project`" + ``,
	}

	baseTsConfigInvalidIssue = &Issue{
		id: BaseTsConfigInvalidId,
		mdMsg: `
# Base tsconfig is not valid JSON!

The base file must be a single JSON object. Comments and trailing commas
are not accepted.

## Things you can try:
- Validate the file with your editor or ` + "`tsc --showConfig`" + `
- Remove comments from the base file`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Could not write the generated tsconfig!

## Things you can try:
- Check that the destination directory exists
- Preview the output without writing:
~~~
$ variantc tsconfig --dry-run
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Things you can try:
- Check file and directory permissions in the project tree
- Run variantc from a directory you own`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		tenantSetInvalidIssue.Id():     tenantSetInvalidIssue,
		unknownTenantIssue.Id():        unknownTenantIssue,
		inventoryInvalidIssue.Id():     inventoryInvalidIssue,
		baseTsConfigNotFoundIssue.Id(): baseTsConfigNotFoundIssue,
		baseTsConfigInvalidIssue.Id():  baseTsConfigInvalidIssue,
		outputWriteFailedIssue.Id():    outputWriteFailedIssue,
		permissionDeniedIssue.Id():     permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
