// The main package for the topicstreams-scraper executable.
package main

import (
	"github.com/JakeFAU/topicstreams-scraper/cmd"
)

func main() {
	cmd.Execute()
}
