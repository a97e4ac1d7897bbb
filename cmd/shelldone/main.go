package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"shelldone/internal/config"
	"shelldone/internal/shell"
)

func main() {
	os.Exit(run())
}

func run() int {
	var command = flag.String("c", "", "执行命令字符串")
	var scriptFile = flag.String("f", "", "执行脚本文件")
	var configPath = flag.String("config", "", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shelldone: config: %v\n", err)
	}

	sh, err := shell.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shelldone: %v\n", err)
	}
	defer func() {
		if err := sh.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "shelldone: %v\n", err)
		}
	}()

	switch {
	// 执行命令字符串
	case *command != "":
		err = sh.ExecuteReader(strings.NewReader(*command))
	// 执行脚本文件
	case *scriptFile != "":
		err = sh.ExecuteScript(*scriptFile)
	// 如果有命令行参数，作为脚本执行
	case flag.NArg() > 0:
		err = sh.ExecuteScript(flag.Arg(0))
	// 交互式模式
	default:
		return sh.Run()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "shelldone: %v\n", err)
		if sh.Status() == 0 {
			return 1
		}
	}
	return sh.Status()
}
