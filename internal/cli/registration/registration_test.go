package registration

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentnow/agentproxy/pkg/foundry"
	"github.com/incidentnow/agentproxy/test/mockfoundry"
)

type fakeClient struct {
	created   []foundry.CreateAgentRequest
	lookups   []string
	existing  *foundry.AgentObject
	getErr    error
	createErr error
}

func (f *fakeClient) CreateAgent(_ context.Context, req foundry.CreateAgentRequest) (*foundry.AgentObject, error) {
	f.created = append(f.created, req)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &foundry.AgentObject{ID: req.Name + ":1", Name: req.Name}, nil
}

func (f *fakeClient) GetAgent(_ context.Context, name string) (*foundry.AgentObject, error) {
	f.lookups = append(f.lookups, name)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.existing, nil
}

var notFound = &foundry.Error{
	Kind: foundry.KindUpstream,
	Op:   "get agent",
	Err:  &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "not_found"},
}

func writerOptions() Options {
	return Options{Name: "WriterAgentV2", Model: "gpt-4o", Instructions: WriterInstructions}
}

func TestRunCreates(t *testing.T) {
	client := &fakeClient{}
	var out bytes.Buffer

	agent, err := Run(context.Background(), &out, client, writerOptions())
	require.NoError(t, err)
	assert.Equal(t, "WriterAgentV2:1", agent.ID)

	require.Len(t, client.created, 1)
	req := client.created[0]
	assert.Equal(t, "WriterAgentV2", req.Name)
	assert.Equal(t, foundry.AgentKindPrompt, req.Definition.Kind)
	assert.Equal(t, "gpt-4o", req.Definition.Model)
	require.NotNil(t, req.Definition.Instructions)
	assert.Equal(t, WriterInstructions, *req.Definition.Instructions)
	assert.Empty(t, client.lookups, "always-create does not look up first")

	assert.Contains(t, out.String(), "CREATING WRITERAGENTV2 IN AZURE AI FOUNDRY")
	assert.Contains(t, out.String(), "Agent ID: WriterAgentV2:1")
	assert.Contains(t, out.String(), "Agent Name: WriterAgentV2")
	assert.Contains(t, out.String(), "AGENT SETUP COMPLETE")
}

func TestRunCreateFailure(t *testing.T) {
	client := &fakeClient{createErr: stderrors.New("403 Forbidden")}
	var out bytes.Buffer

	_, err := Run(context.Background(), &out, client, writerOptions())
	require.Error(t, err)
	assert.Equal(t, "failed to create agent WriterAgentV2: 403 Forbidden", err.Error())
	assert.NotContains(t, out.String(), "created successfully")
}

func TestRunSkipExisting(t *testing.T) {
	t.Run("existing agent is kept", func(t *testing.T) {
		client := &fakeClient{existing: &foundry.AgentObject{ID: "WriterAgentV2:7", Name: "WriterAgentV2"}}
		opts := writerOptions()
		opts.SkipExisting = true
		var out bytes.Buffer

		agent, err := Run(context.Background(), &out, client, opts)
		require.NoError(t, err)
		assert.Equal(t, "WriterAgentV2:7", agent.ID)
		assert.Empty(t, client.created)
		assert.Contains(t, out.String(), "already exists")
	})

	t.Run("missing agent is created", func(t *testing.T) {
		client := &fakeClient{getErr: notFound}
		opts := writerOptions()
		opts.SkipExisting = true

		_, err := Run(context.Background(), &bytes.Buffer{}, client, opts)
		require.NoError(t, err)
		assert.Equal(t, []string{"WriterAgentV2"}, client.lookups)
		assert.Len(t, client.created, 1)
	})

	t.Run("lookup failure stops", func(t *testing.T) {
		client := &fakeClient{getErr: stderrors.New("connection refused")}
		opts := writerOptions()
		opts.SkipExisting = true

		_, err := Run(context.Background(), &bytes.Buffer{}, client, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to look up agent WriterAgentV2")
		assert.Empty(t, client.created)
	})
}

func TestRunAgainstProject(t *testing.T) {
	srv := mockfoundry.NewServer("")
	defer srv.Close()

	tokens := foundry.TokenProviderFunc(func(context.Context, string) (string, error) { return "tok", nil })
	client, err := foundry.NewProjectClient(srv.ProjectEndpoint("proj1"), tokens, nil)
	require.NoError(t, err)

	first, err := Run(context.Background(), &bytes.Buffer{}, client, writerOptions())
	require.NoError(t, err)
	second, err := Run(context.Background(), &bytes.Buffer{}, client, writerOptions())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "every run creates a new version")

	opts := writerOptions()
	opts.SkipExisting = true
	third, err := Run(context.Background(), &bytes.Buffer{}, client, opts)
	require.NoError(t, err)
	assert.Equal(t, second.ID, third.ID)
	assert.Equal(t, 2, srv.CallCount("/agents"))
}

func TestLoadInstructions(t *testing.T) {
	fsys := afero.NewMemMapFs()

	got, err := LoadInstructions(fsys, "")
	require.NoError(t, err)
	assert.Equal(t, WriterInstructions, got)

	require.NoError(t, afero.WriteFile(fsys, "/instructions.md", []byte("  Review code.\n"), 0o600))
	got, err = LoadInstructions(fsys, "/instructions.md")
	require.NoError(t, err)
	assert.Equal(t, "Review code.", got)

	require.NoError(t, afero.WriteFile(fsys, "/empty.md", []byte("\n"), 0o600))
	_, err = LoadInstructions(fsys, "/empty.md")
	assert.Error(t, err)

	_, err = LoadInstructions(fsys, "/missing.md")
	assert.Error(t, err)
}

func TestRunSendsDescriptionAndMetadata(t *testing.T) {
	client := &fakeClient{}
	opts := writerOptions()
	opts.Description = "Writes docs."
	opts.Metadata = map[string]string{"team": "docs"}

	_, err := Run(context.Background(), &bytes.Buffer{}, client, opts)
	require.NoError(t, err)

	require.Len(t, client.created, 1)
	require.NotNil(t, client.created[0].Description)
	assert.Equal(t, "Writes docs.", *client.created[0].Description)
	assert.Equal(t, map[string]string{"team": "docs"}, client.created[0].Metadata)
}

func TestRunBannerUppercasesName(t *testing.T) {
	opts := writerOptions()
	opts.Name = "straßeAgent"
	var out bytes.Buffer

	_, err := Run(context.Background(), &out, &fakeClient{}, opts)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "CREATING STRASSEAGENT IN AZURE AI FOUNDRY")
}
