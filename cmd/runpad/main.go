// Command runpad runs untrusted JavaScript and Python snippets and
// reports their output as an ordered console log.
package main

func main() {
	Execute()
}
