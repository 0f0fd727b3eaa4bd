// sandboxctl 是沙箱网关的运维命令行工具。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/magic-box/sandboxgw/conf"
	"github.com/magic-box/sandboxgw/internal/log"
	"github.com/magic-box/sandboxgw/sandbox"
	"go.uber.org/zap"
)

type globalOptions struct {
	Endpoint         string        `long:"endpoint" description:"Sandbox gateway URL, overrides SANDBOX_GATEWAY_URL"`
	APIKey           string        `long:"api-key" description:"Gateway API key, overrides SANDBOX_API_KEY"`
	LocalURL         string        `long:"local-url" description:"Local service URL used by --bypass"`
	Bypass           bool          `long:"bypass" description:"Skip the gateway and talk to --local-url directly"`
	UserID           string        `long:"user-id" description:"Value of the magic-user-id header"`
	OrganizationCode string        `long:"org" description:"Value of the magic-organization-code header"`
	Timeout          time.Duration `long:"timeout" default:"2m" description:"Overall timeout of the command"`
	Verbose          bool          `short:"v" long:"verbose" description:"Log every gateway attempt"`
	Debug            []bool        `short:"d" long:"debug" description:"Dump gateway requests and responses, repeat to include bodies and connection trace"`
}

// debugLevel 把 -d 的出现次数换算为调试级别。
func (o *globalOptions) debugLevel() conf.DebugLevel {
	level := conf.DebugLevel(len(o.Debug))
	if level > conf.DebugDetail {
		level = conf.DebugDetail
	}
	return level
}

var options globalOptions

func main() {
	parser := flags.NewParser(&options, flags.Default)
	parser.ShortDescription = "sandbox gateway control"

	mustAddCommand(parser, "ensure", "Ensure a sandbox is running", &ensureCommand{})
	mustAddCommand(parser, "status", "Show the status of one sandbox", &statusCommand{})
	mustAddCommand(parser, "batch-status", "Show the status of several sandboxes", &batchStatusCommand{})
	mustAddCommand(parser, "proxy", "Send a request to a service inside a sandbox", &proxyCommand{})
	mustAddCommand(parser, "copy", "Copy files between object storage paths", &copyCommand{})
	mustAddCommand(parser, "upgrade", "Upgrade the sandbox runtime", &upgradeCommand{})
	mustAddCommand(parser, "health", "Check that the gateway is reachable", &healthCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func mustAddCommand(parser *flags.Parser, name, description string, command interface{}) {
	if _, err := parser.AddCommand(name, description, description, command); err != nil {
		panic(err)
	}
}

// newClient 在环境变量与配置文件的基础上叠加命令行参数。
func newClient() (*sandbox.Client, error) {
	if options.Verbose || len(options.Debug) > 0 {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		log.SetLogger(logger)
	}

	config, err := sandbox.ConfigFromEnvironment()
	if err != nil {
		return nil, err
	}
	if options.Endpoint != "" {
		config.Endpoint = options.Endpoint
	}
	if options.APIKey != "" {
		config.APIKey = options.APIKey
	}
	if options.LocalURL != "" {
		config.LocalURL = options.LocalURL
	}
	if options.Bypass {
		config.Enabled = sandbox.Bool(false)
	}
	config.Debug = options.debugLevel()
	return sandbox.NewClient(config)
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), options.Timeout)
	ctx = sandbox.WithAuthContext(ctx, sandbox.AuthContext{
		UserID:           options.UserID,
		OrganizationCode: options.OrganizationCode,
	})
	return ctx, cancel
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

type resultOutput struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// printResult 打印结果，失败结果返回错误使进程以非 0 退出。
func printResult(result sandbox.Result) error {
	if err := printJSON(resultOutput{Code: result.Code, Message: result.Message, Data: result.RawData()}); err != nil {
		return err
	}
	if !result.IsSuccess() {
		return fmt.Errorf("gateway returned code %d", result.Code)
	}
	return nil
}
