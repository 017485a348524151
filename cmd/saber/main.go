/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/paulista5/SABER/cmd/saber/cmd"

func main() {
	cmd.Execute()
}
