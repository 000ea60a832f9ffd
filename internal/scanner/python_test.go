package scanner

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Python Scanner:
// - Empty input yields no events
// - Comments are emitted without the leading '#'
// - Decorators are emitted with their name and the decorated definition
// - Class headers carry positional base classes (keyword arguments skipped)
// - async def is flagged on the function event
// - Typed parameters, return types and annotated variables emit annotation events
// - Imports bind names used to resolve later call chains
// - Assignments from calls bind the target for later method calls
// - Subscript reads carry the string key; subscript writes are skipped
// - Assignment events flag string-literal right-hand sides
// - try/except/finally emit one event per clause, except carries alias and types
// - Strings inside docstrings and comments do not produce call events
// - Malformed input emits a malformed event and scanning continues
// - Events are ordered by line and column, lines stay within the input
// - The fixture script scans without malformed events

func scan(t *testing.T, src string) []Event {
	t.Helper()
	return NewPythonScanner().Scan([]byte(src))
}

func eventsOfKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func TestScan_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, scan(t, ""))
	assert.Empty(t, scan(t, "\n\n"))
}

func TestScan_Comments(t *testing.T) {
	t.Parallel()

	events := scan(t, "# TODO: fix this\nx = 1  # trailing\n")
	comments := eventsOfKind(events, EventComment)

	require.Len(t, comments, 2)
	assert.Equal(t, "TODO: fix this", comments[0].Text)
	assert.Equal(t, 1, comments[0].Line)
	assert.Equal(t, "trailing", comments[1].Text)
	assert.Equal(t, 2, comments[1].Line)
}

func TestScan_Decorators(t *testing.T) {
	t.Parallel()

	src := `class K8sPipeline:
    @log_execution
    def deploy(self, image):
        pass

@app.route("/health")
def health():
    pass
`
	decorators := eventsOfKind(scan(t, src), EventDecorator)

	require.Len(t, decorators, 2)
	assert.Equal(t, "log_execution", decorators[0].Name)
	assert.Equal(t, "deploy", decorators[0].Value)
	assert.Equal(t, 2, decorators[0].Line)
	assert.Equal(t, "@log_execution", decorators[0].Text)

	assert.Equal(t, "app.route", decorators[1].Name)
	assert.Equal(t, "health", decorators[1].Value)
	assert.Equal(t, 6, decorators[1].Line)
}

func TestScan_ClassBases(t *testing.T) {
	t.Parallel()

	src := `class Base:
    pass

class K8sPipeline(BasePipeline):  # inheritance
    pass

class Meta(abc.ABC, metaclass=ABCMeta):
    pass
`
	classes := eventsOfKind(scan(t, src), EventClassDef)

	require.Len(t, classes, 3)
	assert.Equal(t, "Base", classes[0].Name)
	assert.Empty(t, classes[0].Names)

	assert.Equal(t, "K8sPipeline", classes[1].Name)
	assert.Equal(t, []string{"BasePipeline"}, classes[1].Names)
	assert.Equal(t, "class K8sPipeline(BasePipeline):", classes[1].Text)

	assert.Equal(t, []string{"abc.ABC"}, classes[2].Names)
}

func TestScan_AsyncFunction(t *testing.T) {
	t.Parallel()

	src := `async def pull(image):
    pass

def push(image):
    pass
`
	funcs := eventsOfKind(scan(t, src), EventFuncDef)

	require.Len(t, funcs, 2)
	assert.Equal(t, "pull", funcs[0].Name)
	assert.True(t, funcs[0].Async)
	assert.Equal(t, "push", funcs[1].Name)
	assert.False(t, funcs[1].Async)
}

func TestScan_Annotations(t *testing.T) {
	t.Parallel()

	src := `API_TOKEN: str = "abc"

def deploy(self, image: str, retries: int = 3) -> bool:
    return True
`
	annotations := eventsOfKind(scan(t, src), EventAnnotation)

	require.Len(t, annotations, 4)

	assert.Equal(t, TargetVariable, annotations[0].Target)
	assert.Equal(t, "API_TOKEN", annotations[0].Name)
	assert.Equal(t, "str", annotations[0].Value)

	assert.Equal(t, TargetParameter, annotations[1].Target)
	assert.Equal(t, "image", annotations[1].Name)
	assert.Equal(t, "image: str", annotations[1].Text)

	assert.Equal(t, TargetParameter, annotations[2].Target)
	assert.Equal(t, "retries", annotations[2].Name)
	assert.Equal(t, "int", annotations[2].Value)

	assert.Equal(t, TargetReturn, annotations[3].Target)
	assert.Equal(t, "deploy", annotations[3].Name)
	assert.Equal(t, "bool", annotations[3].Value)
	assert.Equal(t, "-> bool", annotations[3].Text)

	// Source order within the def line
	assert.Less(t, annotations[1].Column, annotations[2].Column)
	assert.Less(t, annotations[2].Column, annotations[3].Column)
}

func TestScan_ImportResolution(t *testing.T) {
	t.Parallel()

	src := `import numpy as np
from google.cloud import storage
from kubernetes import client, config
from azure.mgmt.compute import ComputeManagementClient as CMC

np.array([1])
storage.Client()
config.load_kube_config()
v1 = client.CoreV1Api()
CMC(None, "sub")
`
	events := scan(t, src)

	imports := eventsOfKind(events, EventImport)
	require.Len(t, imports, 4)
	assert.Equal(t, []string{"np"}, imports[0].Names)
	assert.Equal(t, []string{"storage"}, imports[1].Names)
	assert.Equal(t, "google.cloud", imports[1].Resolved)
	assert.Equal(t, []string{"client", "config"}, imports[2].Names)
	assert.Equal(t, []string{"CMC"}, imports[3].Names)

	var resolved []string
	for _, ev := range eventsOfKind(events, EventCall) {
		resolved = append(resolved, ev.Resolved)
	}
	assert.Equal(t, []string{
		"numpy.array",
		"google.cloud.storage.Client",
		"kubernetes.config.load_kube_config",
		"kubernetes.client.CoreV1Api",
		"azure.mgmt.compute.ComputeManagementClient",
	}, resolved)
}

func TestScan_AssignmentBindings(t *testing.T) {
	t.Parallel()

	src := `import argparse
import logging

logger = logging.getLogger("svc")
parser = argparse.ArgumentParser(description="x")
parser.add_argument("--image")
logger.info("ready")

class P:
    def __init__(self, token):
        self.gh = Github(token)
        self.gh.get_repo("a/b")

parser = "shadowed"
parser.add_argument("--late")
`
	calls := eventsOfKind(scan(t, src), EventCall)

	byRaw := make(map[string][]string)
	for _, ev := range calls {
		byRaw[ev.Name] = append(byRaw[ev.Name], ev.Resolved)
	}

	assert.Equal(t, []string{"logging.getLogger"}, byRaw["logging.getLogger"])
	assert.Equal(t, []string{
		"argparse.ArgumentParser().add_argument",
		"parser.add_argument",
	}, byRaw["parser.add_argument"])
	assert.Equal(t, []string{"logging.getLogger().info"}, byRaw["logger.info"])
	assert.Equal(t, []string{"Github().get_repo"}, byRaw["self.gh.get_repo"])
}

func TestScan_CallFirstStringArgument(t *testing.T) {
	t.Parallel()

	calls := eventsOfKind(scan(t, `os.getenv("GITHUB_TOKEN")`+"\n"+`os.getenv(name)`+"\n"), EventCall)

	require.Len(t, calls, 2)
	assert.Equal(t, "GITHUB_TOKEN", calls[0].Value)
	assert.Equal(t, "os.getenv", calls[0].Resolved)
	assert.Empty(t, calls[1].Value)
}

func TestScan_Subscripts(t *testing.T) {
	t.Parallel()

	src := `APP_SECRET = os.environ["APP_SECRET_KEY"]
os.environ["MODE"] = "prod"
`
	subs := eventsOfKind(scan(t, src), EventSubscript)

	require.Len(t, subs, 1)
	assert.Equal(t, "os.environ", subs[0].Resolved)
	assert.Equal(t, "APP_SECRET_KEY", subs[0].Value)
	assert.Equal(t, 1, subs[0].Line)
}

func TestScan_AssignmentLiteral(t *testing.T) {
	t.Parallel()

	src := `API_TOKEN = "ghp_xxx"
GITHUB_TOKEN = os.getenv("GITHUB_TOKEN")
self.password = 'hunter2'
`
	assigns := eventsOfKind(scan(t, src), EventAssignment)

	require.Len(t, assigns, 3)
	assert.Equal(t, "API_TOKEN", assigns[0].Name)
	assert.True(t, assigns[0].Literal)
	assert.Equal(t, "GITHUB_TOKEN", assigns[1].Name)
	assert.False(t, assigns[1].Literal)
	assert.Equal(t, "self.password", assigns[2].Name)
	assert.True(t, assigns[2].Literal)
}

func TestScan_ChainedAssignment(t *testing.T) {
	t.Parallel()

	src := `API_KEY = TOKEN = "abc"
GREETING = f"hello {name}"
c = d = boto3.client("s3")
c.upload_file("a", "b", "c")
`
	assigns := eventsOfKind(scan(t, src), EventAssignment)

	require.Len(t, assigns, 5)
	assert.Equal(t, "API_KEY", assigns[0].Name)
	assert.True(t, assigns[0].Literal)
	assert.Equal(t, "TOKEN", assigns[1].Name)
	assert.True(t, assigns[1].Literal)
	assert.Equal(t, "GREETING", assigns[2].Name)
	assert.False(t, assigns[2].Literal)

	calls := eventsOfKind(scan(t, src), EventCall)
	require.NotEmpty(t, calls)
	assert.Equal(t, "boto3.client().upload_file", calls[len(calls)-1].Resolved)
}

func TestScan_ErrorHandling(t *testing.T) {
	t.Parallel()

	src := `try:
    fetch()
except (ValueError, KeyError):
    pass
except Exception as e:
    log(e)
except:
    raise
finally:
    done()
`
	events := scan(t, src)

	tries := eventsOfKind(events, EventTry)
	require.Len(t, tries, 1)
	assert.Equal(t, 1, tries[0].Line)

	excepts := eventsOfKind(events, EventExcept)
	require.Len(t, excepts, 3)
	assert.Equal(t, []string{"ValueError", "KeyError"}, excepts[0].Names)
	assert.Empty(t, excepts[0].Name)
	assert.Equal(t, []string{"Exception"}, excepts[1].Names)
	assert.Equal(t, "e", excepts[1].Name)
	assert.Equal(t, "except Exception as e:", excepts[1].Text)
	assert.Empty(t, excepts[2].Names)

	finals := eventsOfKind(events, EventFinally)
	require.Len(t, finals, 1)
	assert.Equal(t, 9, finals[0].Line)
}

func TestScan_StringsAreNotCode(t *testing.T) {
	t.Parallel()

	src := `"""Calls requests.get(url) in prose."""
# requests.post(url)
x = "os.getenv('A')"
`
	events := scan(t, src)

	assert.Empty(t, eventsOfKind(events, EventCall))
	strs := eventsOfKind(events, EventString)
	require.Len(t, strs, 2)
	assert.Equal(t, "Calls requests.get(url) in prose.", strs[0].Value)
	assert.Equal(t, "os.getenv('A')", strs[1].Value)
}

func TestScan_MalformedContinues(t *testing.T) {
	t.Parallel()

	src := "print('a'))\nTOKEN = 'x'\n"
	events := scan(t, src)

	malformed := eventsOfKind(events, EventMalformed)
	require.NotEmpty(t, malformed)
	assert.Equal(t, 1, malformed[0].Line)

	assigns := eventsOfKind(events, EventAssignment)
	require.Len(t, assigns, 1)
	assert.Equal(t, "TOKEN", assigns[0].Name)
	assert.Equal(t, 2, assigns[0].Line)
}

func TestScan_OrderAndLineBounds(t *testing.T) {
	t.Parallel()

	src := "import os\nx = os.getenv('A'); y = os.getenv('B')\nif (\n"
	events := scan(t, src)
	require.NotEmpty(t, events)

	for i, ev := range events {
		assert.GreaterOrEqual(t, ev.Line, 1)
		assert.LessOrEqual(t, ev.Line, 3)
		if i > 0 {
			prev := events[i-1]
			assert.True(t, prev.Line < ev.Line || (prev.Line == ev.Line && prev.Column <= ev.Column),
				"event %d (%s) out of order", i, ev.Kind)
		}
	}

	calls := eventsOfKind(events, EventCall)
	require.Len(t, calls, 2)
	assert.Equal(t, "A", calls[0].Value)
	assert.Equal(t, "B", calls[1].Value)
}

func TestScan_Fixture(t *testing.T) {
	t.Parallel()

	source, err := os.ReadFile("../../testdata/code/python/devops_pipeline.py")
	require.NoError(t, err)

	events := NewPythonScanner().Scan(source)

	assert.Empty(t, eventsOfKind(events, EventMalformed))
	assert.Len(t, eventsOfKind(events, EventTry), 2)
	assert.Len(t, eventsOfKind(events, EventExcept), 3)
	assert.Len(t, eventsOfKind(events, EventFinally), 1)
	assert.Len(t, eventsOfKind(events, EventDecorator), 3)

	var async []string
	for _, ev := range eventsOfKind(events, EventFuncDef) {
		if ev.Async {
			async = append(async, ev.Name)
		}
	}
	assert.Equal(t, []string{"pull_docker_image"}, async)
}
