package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/magic-box/sandboxgw/sandbox"
)

type ensureCommand struct {
	SandboxID string `long:"id" description:"Sandbox id, empty to let the gateway assign one"`
	ProjectID string `long:"project" required:"true" description:"Project id"`
	WorkDir   string `long:"workdir" description:"Project work directory in object storage"`
}

func (c *ensureCommand) Execute([]string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	id, err := client.EnsureAvailable(ctx, c.SandboxID, c.ProjectID, c.WorkDir)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

type statusCommand struct {
	Args struct {
		SandboxID string `positional-arg-name:"sandbox-id" required:"true"`
	} `positional-args:"true"`
}

func (c *statusCommand) Execute([]string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	result := client.GetStatus(ctx, c.Args.SandboxID)
	if err := printJSON(map[string]interface{}{
		"code":       result.Code,
		"message":    result.Message,
		"sandbox_id": result.SandboxID,
		"status":     result.Status,
	}); err != nil {
		return err
	}
	if !result.IsSuccess() {
		return fmt.Errorf("gateway returned code %d", result.Code)
	}
	return nil
}

type batchStatusCommand struct {
	Args struct {
		SandboxIDs []string `positional-arg-name:"sandbox-id" required:"1"`
	} `positional-args:"true"`
}

func (c *batchStatusCommand) Execute([]string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	result := client.GetBatchStatus(ctx, c.Args.SandboxIDs)
	if !result.IsSuccess() {
		return printResult(result.Result)
	}
	return printJSON(map[string]interface{}{
		"total":     result.TotalCount(),
		"running":   result.RunningCount(),
		"sandboxes": result.Sandboxes,
	})
}

type proxyCommand struct {
	SandboxID string   `long:"id" required:"true" description:"Sandbox id"`
	Method    string   `short:"X" long:"method" default:"GET" description:"HTTP method"`
	Path      string   `long:"path" required:"true" description:"Path of the service inside the sandbox"`
	Data      string   `short:"d" long:"data" description:"Request body, sent for POST, PUT and PATCH"`
	Headers   []string `short:"H" long:"header" description:"Extra header as 'Name: value', may be repeated"`
}

func (c *proxyCommand) Execute([]string) error {
	header := http.Header{}
	for _, h := range c.Headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return fmt.Errorf("invalid header %q", h)
		}
		header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	req := sandbox.ProxyRequest{
		SandboxID: c.SandboxID,
		Method:    c.Method,
		Path:      c.Path,
		Header:    header,
	}
	if c.Data != "" {
		req.Body = []byte(c.Data)
	}
	return printResult(client.Proxy(ctx, req))
}

type copyCommand struct {
	Files []string `long:"file" required:"true" description:"Copy as 'source=target', may be repeated"`
}

func (c *copyCommand) Execute([]string) error {
	req := sandbox.CopyFilesRequest{}
	for _, f := range c.Files {
		source, target, ok := strings.Cut(f, "=")
		if !ok {
			return errors.New("file must be given as source=target")
		}
		req.Files = append(req.Files, sandbox.CopyFile{SourceOSSPath: source, TargetOSSPath: target})
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	return printResult(client.CopyFiles(ctx, req))
}

type upgradeCommand struct {
	MessageID   string `long:"message-id" required:"true" description:"Message id"`
	ContextType string `long:"context-type" required:"true" description:"Context type"`
}

func (c *upgradeCommand) Execute([]string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	return printResult(client.Upgrade(ctx, sandbox.UpgradeRequest{MessageID: c.MessageID, ContextType: c.ContextType}))
}

type healthCommand struct{}

func (c *healthCommand) Execute([]string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()
	return printResult(client.HealthCheck(ctx))
}
