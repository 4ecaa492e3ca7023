package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/nergy-se/smartrce/pkg/modbusclient"
)

var decimals = flag.Int("decimals", 0, "scale the value down by 10^decimals")

// modc reads single registers from the inverter to find the ones to configure.
func main() {
	address := flag.String("addr", "", "tcp modbus address")
	inputreg := flag.Int("inputreg", 0, "input reg")
	holdingreg := flag.Int("holdingreg", 0, "16 bit holding reg")
	holdingreg32 := flag.Int("holdingreg32", 0, "32 bit holding reg")
	slaveID := flag.Int("slave", 1, "modbus slave id")
	flag.Parse()

	client := modbusclient.Dial(*address, byte(*slaveID), 5*time.Second)
	defer client.Close()

	var v int
	var err error
	switch {
	case isFlagPassed("inputreg"):
		v, err = client.ReadInputRegister(uint16(*inputreg))
	case isFlagPassed("holdingreg"):
		v, err = client.ReadHoldingRegister16(uint16(*holdingreg))
	case isFlagPassed("holdingreg32"):
		v, err = client.ReadHoldingRegister32(uint16(*holdingreg32))
	default:
		log.Fatal("one of -inputreg, -holdingreg or -holdingreg32 is required")
	}

	if err != nil {
		log.Fatal("error was: ", err)
	}
	fmt.Printf("raw value: %d\n", v)
	fmt.Printf("value is: %v\n", float64(v)/IntPow(10, *decimals))
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func IntPow(base, exp int) float64 {
	result := 1
	for {
		if exp&1 == 1 {
			result *= base
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		base *= base
	}

	return float64(result)
}
