package survey

// Namespace returns the flags selecting which robot the executive tools
// command. When the local robot identity differs from the target, the tools
// must address the target's namespace explicitly.
func Namespace(current, target string) string {
	if current != target {
		return " -remote -ns " + target
	}
	return " -remote"
}

func dockCommand(berth, ns string) string {
	return "rosrun executive teleop_tool -dock" + ns + " -berth " + berth
}

func undockCommand(ns string) string {
	return "rosrun executive teleop_tool -undock" + ns
}

func moveCommand(bay, ns string) string {
	return "rosrun executive teleop_tool -move " + bay + ns
}

func panoramaCommand(poses, ns string) string {
	return "rosrun inspection inspection_tool -geometry -geometry_poses /resources/" + poses + ns
}

func planPubCommand(planPath, ns string) string {
	return "rosrun executive plan_pub " + planPath + ns
}
