package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bbravo/portfolio-api/internal/config"
	"github.com/bbravo/portfolio-api/internal/github"
	"github.com/bbravo/portfolio-api/internal/logging"
	"github.com/bbravo/portfolio-api/internal/repos"
	"github.com/bbravo/portfolio-api/internal/resume"
	"github.com/bbravo/portfolio-api/internal/server"
	"github.com/bbravo/portfolio-api/internal/server/routes"
	"github.com/bbravo/portfolio-api/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["repos"] = len(cfg.Repos)
		fields["token"] = cfg.Global.TokenMode()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动顺序：配置 → 共享 HTTP 客户端 → GitHub 客户端 → 聚合器/简历缓存 →
	// Fiber server，保证所有请求共享同一份上游客户端与缓存实例。
	httpClient := server.NewUpstreamClient(cfg)
	githubClient := github.NewClient(github.Options{
		HTTPClient: httpClient,
		Logger:     logger,
		Token:      cfg.Global.GitHubToken,
	})
	aggregator := repos.New(githubClient, logger, cfg)
	resumeCache := resume.NewCache(githubClient, logger, cfg)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["repos"] = len(cfg.Repos)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["token"] = cfg.Global.TokenMode()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, logger, aggregator, resumeCache, githubClient); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("portfolio-api", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 PORTFOLIO_API_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("PORTFOLIO_API_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, logger *logrus.Logger, aggregator *repos.Aggregator, resumeCache *resume.Cache, githubClient *github.Client) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.Register(app, routes.Options{
		Logger:      logger,
		Config:      cfg,
		Aggregator:  aggregator,
		ResumeCache: resumeCache,
		GitHub:      githubClient,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
