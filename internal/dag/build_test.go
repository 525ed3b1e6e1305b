package dag

import (
	"context"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/seqci/internal/config"
)

func job(taskType, name string, requires ...string) *config.Job {
	return &config.Job{TaskType: taskType, Name: name, Requires: requires}
}

func model(jobs []*config.Job, resources ...*config.Resource) *config.Model {
	return &config.Model{Pipeline: &config.Pipeline{Jobs: jobs, Resources: resources}}
}

func expr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	e, diags := hclsyntax.ParseExpression([]byte(src), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors(), diags.Error())
	return e
}

func TestBuild_CreatesNodes(t *testing.T) {
	m := model(
		[]*config.Job{job("docker", "build"), job("exec", "unittests")},
		&config.Resource{AssetType: "http_client", Name: "shared"},
	)

	g, err := Build(context.Background(), m)
	require.NoError(t, err)

	require.Len(t, g.Nodes, 3)
	build, ok := g.Nodes["job.docker.build"]
	require.True(t, ok)
	assert.Equal(t, JobNode, build.Type)
	assert.Equal(t, "build", build.Name)

	client, ok := g.Nodes["resource.http_client.shared"]
	require.True(t, ok)
	assert.Equal(t, ResourceNode, client.Type)
}

func TestBuild_DuplicateJobFails(t *testing.T) {
	m := model([]*config.Job{job("docker", "build"), job("docker", "build")})

	_, err := Build(context.Background(), m)
	assert.ErrorContains(t, err, "duplicate job definition 'job.docker.build'")
}

func TestBuild_ParsesTimeout(t *testing.T) {
	j := job("docker", "build")
	j.Timeout = "45m"
	m := model([]*config.Job{j})

	g, err := Build(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, "45m0s", g.Nodes["job.docker.build"].Timeout.String())
}

func TestBuild_RejectsBadTimeout(t *testing.T) {
	j := job("docker", "build")
	j.Timeout = "45 parsecs"
	m := model([]*config.Job{j})

	_, err := Build(context.Background(), m)
	assert.ErrorContains(t, err, "invalid timeout for job 'job.docker.build'")
}

func TestBuild_LinksExplicitRequires(t *testing.T) {
	m := model([]*config.Job{
		job("docker", "build"),
		job("exec", "unittests", "docker.build"),
	})

	g, err := Build(context.Background(), m)
	require.NoError(t, err)

	build := g.Nodes["job.docker.build"]
	tests := g.Nodes["job.exec.unittests"]

	assert.Contains(t, build.Dependents, tests.ID)
	assert.Contains(t, tests.Deps, build.ID)
	assert.Equal(t, int32(1), tests.DepCount())
	assert.Equal(t, int32(0), build.DepCount())
}

func TestBuild_FanOutFanIn(t *testing.T) {
	m := model([]*config.Job{
		job("docker", "build"),
		job("exec", "test_a", "docker.build"),
		job("exec", "test_b", "docker.build"),
		job("exec", "test_c", "docker.build"),
		job("docker", "push_template", "exec.test_a", "exec.test_b", "exec.test_c"),
	})

	g, err := Build(context.Background(), m)
	require.NoError(t, err)

	build := g.Nodes["job.docker.build"]
	push := g.Nodes["job.docker.push_template"]

	assert.Len(t, build.Dependents, 3)
	assert.Len(t, push.Deps, 3)
	assert.Equal(t, int32(3), push.DepCount())
}

func TestBuild_UnknownRequireFails(t *testing.T) {
	m := model([]*config.Job{job("exec", "unittests", "docker.build")})

	_, err := Build(context.Background(), m)
	assert.Error(t, err)
}

func TestBuild_SelfRequireFails(t *testing.T) {
	m := model([]*config.Job{job("exec", "a", "exec.a")})

	_, err := Build(context.Background(), m)
	assert.Error(t, err)
}

func TestBuild_ImplicitDepFromExpression(t *testing.T) {
	consumer := job("report", "summary")
	consumer.Arguments = map[string]hcl.Expression{
		"values": expr(t, "job.compare.results.output"),
	}
	m := model([]*config.Job{job("compare", "results"), consumer})

	g, err := Build(context.Background(), m)
	require.NoError(t, err)

	assert.Contains(t, g.Nodes["job.report.summary"].Deps, "job.compare.results")
}

func TestBuild_ImplicitResourceDepFromUses(t *testing.T) {
	consumer := job("fetch", "references")
	consumer.Uses = map[string]hcl.Expression{
		"client": expr(t, "resource.http_client.shared"),
	}
	m := model(
		[]*config.Job{consumer},
		&config.Resource{AssetType: "http_client", Name: "shared"},
	)

	g, err := Build(context.Background(), m)
	require.NoError(t, err)

	assert.Contains(t, g.Nodes["job.fetch.references"].Deps, "resource.http_client.shared")
}

func TestBuild_EnvReferencesAreNotDeps(t *testing.T) {
	j := job("docker", "build")
	j.Arguments = map[string]hcl.Expression{
		"tag": expr(t, "env.SEQCI_IMAGE_TAG"),
	}
	m := model([]*config.Job{j})

	g, err := Build(context.Background(), m)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes["job.docker.build"].Deps)
}

func TestBuild_CycleFails(t *testing.T) {
	m := model([]*config.Job{
		job("exec", "a", "exec.b"),
		job("exec", "b", "exec.a"),
	})

	_, err := Build(context.Background(), m)
	assert.ErrorContains(t, err, "cycle detected")
}
