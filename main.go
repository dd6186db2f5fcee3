/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/uimarket/uimarket/cmd"

func main() {
	cmd.Execute()
}
