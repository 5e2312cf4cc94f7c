package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push <ref>",
	Short: "Enqueue a reference string",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, status, err := apiRequest("POST", "/api/v1/items", map[string]string{"ref": args[0]})
		if err != nil {
			return err
		}
		exitOnError(data, status)
		fmt.Printf("Pushed %s\n", args[0])
		return nil
	},
}

var popCmd = &cobra.Command{
	Use:   "pop",
	Short: "Claim and remove one item",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, status, err := apiRequest("POST", "/api/v1/items/pop", nil)
		if err != nil {
			return err
		}
		exitOnError(data, status)
		if status == http.StatusNoContent {
			fmt.Println("Queue is empty")
			return nil
		}
		if outputJSON {
			printJSON(data)
			return nil
		}
		var resp map[string]string
		json.Unmarshal(data, &resp)
		fmt.Println(resp["ref"])
		return nil
	},
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Show the number of outstanding items",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, status, err := apiRequest("GET", "/api/v1/items/count", nil)
		if err != nil {
			return err
		}
		exitOnError(data, status)
		if outputJSON {
			printJSON(data)
			return nil
		}
		var resp map[string]int64
		json.Unmarshal(data, &resp)
		fmt.Println(resp["count"])
		return nil
	},
}
