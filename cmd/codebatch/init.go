package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/codebatch/pkg/store"
)

var initCmd = &cobra.Command{
	Use:   "init <store>",
	Short: "Create a store root and its store.json",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := store.Init(args[0])
		if err != nil {
			reportErr(cmd, err)
			return err
		}
		fmt.Println(root.Path)
		return nil
	},
}
