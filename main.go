package main

import "staking-ledger/internal/cli"

func main() {
	cli.Execute()
}
