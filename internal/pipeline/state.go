package pipeline

import "fmt"

type State int

const (
	StateInit State = iota
	StateCloneRepos
	StateStackCreateApply
	StateInventoryUpdate
	StateConfigManagementRun
	StateDataBootstrap
	StateStackDestroy
	StateInventoryCleanup
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateInit:                "INIT",
	StateCloneRepos:          "CLONE_REPOS",
	StateStackCreateApply:    "STACK_CREATE_APPLY",
	StateInventoryUpdate:     "INVENTORY_UPDATE",
	StateConfigManagementRun: "CONFIG_MANAGEMENT_RUN",
	StateDataBootstrap:       "DATA_BOOTSTRAP",
	StateStackDestroy:        "STACK_DESTROY",
	StateInventoryCleanup:    "INVENTORY_CLEANUP",
	StateDone:                "DONE",
	StateFailed:              "FAILED",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}
