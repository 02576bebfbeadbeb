// resumectl 离线调试简历流水线：提取、解析、打分，不依赖数据库
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
