package main

import (
	"git.backbone/corpix/stingray/cli"
)

func main() { cli.Run() }
