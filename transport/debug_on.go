// +build quicdebug

package transport

import "log"

func debug(format string, values ...interface{}) {
	log.Printf("transport: "+format, values...)
}
