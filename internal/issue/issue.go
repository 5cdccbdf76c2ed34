// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Id identifies a catalog entry.
type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	InvalidConfigurationNameId
	UnsupportedArgumentId
	UnknownStageId
	StageFailedId
	ArtifactIntegrityId
	NotRunnableId
	ToolchainHomeNotFoundId
	InvalidMetricRuleId
	MetricStoreFailedId
)

type (
	// MarkdownMsg is the markdown body of a catalog entry.
	MarkdownMsg string

	// HttpLink is a reference shown under "See also".
	HttpLink string

	// Issue is a catalog entry explaining a class of failure and how to recover.
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

// Render renders the entry as terminal markdown using the glamour style at stylePath.
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

The configuration file could not be read or does not match the schema.

## Search locations (in order of precedence):
1. The file given with ` + "`--config`" + `
2. ` + "`$XDG_CONFIG_HOME/nibench/config.cue`" + `
3. ` + "`./config.cue`" + `

## Things you can try:
- Print the effective configuration:
~~~
$ nibench config show
~~~
- Start over from the defaults:
~~~
$ nibench config init
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	invalidConfigurationNameIssue = &Issue{
		id: InvalidConfigurationNameId,
		mdMsg: `
# Invalid configuration name!

A configuration name is a dash-separated list of options ending with the
edition, such as ` + "`g1gc-pgo-ee`" + ` or ` + "`default-ce`" + `. Options must appear in
their canonical order and each may appear once.

## Things you can try:
- List the registered names:
~~~
$ nibench config-name list
~~~
- See which options a name enables:
~~~
$ nibench config-name parse g1gc-pgo-ee
~~~`,
	}

	unsupportedArgumentIssue = &Issue{
		id: UnsupportedArgumentId,
		mdMsg: `
# Unsupported benchmark argument!

The arguments after ` + "`--`" + ` are split into VM arguments, the executable
(` + "`-jar <file>`" + `, ` + "`-m <module>`" + ` or a main class) and run arguments.
An argument could not be placed, or an option was given in a form the
image builder does not accept.

## Things you can try:
- Pass options that take a value in a form the splitter knows, such as
  ` + "`-cp app.jar`" + ` or ` + "`--module-path=mods`" + `.
- Do not set ` + "`config-output-dir`" + ` in agentlib options; the agent stage sets it.
- Give ` + "`--bundle-create`" + ` a path argument.`,
	}

	unknownStageIssue = &Issue{
		id: UnknownStageId,
		mdMsg: `
# Unknown stage!

The stages are, in order: ` + "`agent`, `instrument-image`, `instrument-run`, `image`, `run`" + `.

## Things you can try:
- Pass a comma-separated subset:
~~~
$ nibench run default-ce --stages=image,run -- -cp app.jar Main
~~~
- Omit ` + "`--stage`" + ` to run every selected stage in one invocation.`,
	}

	stageFailedIssue = &Issue{
		id: StageFailedId,
		mdMsg: `
# Stage failed!

A benchmark stage exited with an error. Its standard output and error were
printed above and are kept in ` + "`<output dir>/<image>-<stage>-stdout.log`" + ` and
` + "`-stderr.log`" + `.

## Things you can try:
- Resume from the failed stage with the printed ` + "`--stages=`" + ` command.
- Tune the stage with ` + "`--extra-image-build-argument`" + `, ` + "`--extra-jvm-arg`" + ` or
  ` + "`--extra-run-arg`" + `.
- Set ` + "`fatal_on_failure: true`" + ` to stop at the first failure.`,
		extLinks: []HttpLink{"https://www.graalvm.org/latest/reference-manual/native-image/"},
	}

	artifactIntegrityIssue = &Issue{
		id: ArtifactIntegrityId,
		mdMsg: `
# Artifact integrity check failed!

A stage finished but a file it should have produced is missing or malformed,
for example a profile without sampling records or a report path printed by
the image builder that does not exist.

## Things you can try:
- Rerun the stage that produces the artifact.
- For profiles, check that the instrumented run executes long enough to be sampled.
- Set ` + "`skip_samples_check: true`" + ` on the suite when samples are not expected.`,
		extLinks: []HttpLink{"https://www.graalvm.org/latest/reference-manual/native-image/optimizations-and-performance/PGO/"},
	}

	notRunnableIssue = &Issue{
		id: NotRunnableId,
		mdMsg: `
# Benchmark is not runnable!

The suite is listed in ` + "`non_runnable_suites`" + `, so its run stage cannot execute.
The image can still be built.

## Things you can try:
- Select the build stages only:
~~~
$ nibench run default-ce --stages=agent,image -- ...
~~~
- Remove the suite from ` + "`non_runnable_suites`" + ` once a load generator exists.`,
	}

	toolchainHomeNotFoundIssue = &Issue{
		id: ToolchainHomeNotFoundId,
		mdMsg: `
# Toolchain home not found!

The stages need a GraalVM home containing ` + "`bin/native-image`" + ` and ` + "`bin/java`" + `.

## Things you can try:
- Set ` + "`graalvm_home`" + ` in the configuration.
- Export ` + "`GRAALVM_HOME`" + ` or ` + "`JAVA_HOME`" + `.`,
		extLinks: []HttpLink{"https://www.graalvm.org/latest/getting-started/"},
	}

	invalidMetricRuleIssue = &Issue{
		id: InvalidMetricRuleId,
		mdMsg: `
# Invalid metric rule!

A declared suite rule could not be compiled. Each rule needs a pattern with a
named group matching ` + "`value_group`" + `, a metric name, and a known coercion
(` + "`str`, `int`, `time`, `hex`, `float`" + `).

## Example:
~~~cue
rules: [
  {pattern: "ops/s: (?P<ops>[0-9.]+)", metric: "throughput", unit: "op/s", better: "higher", value_group: "ops"},
]
~~~`,
	}

	metricStoreFailedIssue = &Issue{
		id: MetricStoreFailedId,
		mdMsg: `
# Metric store unavailable!

Extracted records could not be written to or read from the database set in
` + "`metrics.database`" + `.

## Things you can try:
- Check that the directory is writable.
- Point ` + "`metrics.database`" + ` at a new file, or leave it empty to disable persistence.`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():         configLoadFailedIssue,
		invalidConfigurationNameIssue.Id(): invalidConfigurationNameIssue,
		unsupportedArgumentIssue.Id():      unsupportedArgumentIssue,
		unknownStageIssue.Id():             unknownStageIssue,
		stageFailedIssue.Id():              stageFailedIssue,
		artifactIntegrityIssue.Id():        artifactIntegrityIssue,
		notRunnableIssue.Id():              notRunnableIssue,
		toolchainHomeNotFoundIssue.Id():    toolchainHomeNotFoundIssue,
		invalidMetricRuleIssue.Id():        invalidMetricRuleIssue,
		metricStoreFailedIssue.Id():        metricStoreFailedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int { return int(a.id - b.id) })
}

// Get returns the entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
