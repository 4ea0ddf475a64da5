package logger

import "os"

// osExit is swapped out in tests.
var osExit = os.Exit
