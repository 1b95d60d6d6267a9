package main

import "github.com/xiaot623/gogo/imagechat/cmd"

func main() {
	cmd.Execute()
}
