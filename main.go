package main

import (
	"fmt"
	"os"
)

func main() {
	// Check for command-line mode
	if len(os.Args) > 1 {
		cmd := os.Args[1]
		switch cmd {
		case "denoise":
			if err := RunDenoiseCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "describe":
			if err := RunDescribeCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "init":
			if err := RunInitCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
	}

	// Default: show help
	printUsage()
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run . [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  denoise     Restore noisy grayscale PNG images with a model")
	fmt.Println("  describe    Print the architecture and its traversal schedule")
	fmt.Println("  init        Write a default architecture file and fresh model")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  go run . init -config=focnet.yaml -model=focnet.bin")
	fmt.Println("  go run . denoise -model=focnet.bin -out=restored noisy1.png noisy2.png")
	fmt.Println("  go run . describe -config=focnet.yaml -trace")
	fmt.Println()
}
