package main

import "text/template"

func createTemplate(name, tmpl string) *template.Template {
	return template.Must(template.New(name).Parse(tmpl))
}

var groupUsage = createTemplate("groupUsage", `Group commands:
  help <description>  Request help from a teaching assistant
  done                Mark the current task as done and start the next one
  status              Show the current task, status light and queue number
  ?                   Shows this help text
  quit                Leave the session
You can request help once a TA is online. You are told your number in the
queue, and when a TA starts helping you.
`)

var assistantUsage = createTemplate("assistantUsage", `Teaching Assistant commands:
  task <minutes> <description>  Stage a task for the task list
  submit                        Send the staged tasks to every group (once per session)
  claim <group>                 Start helping a group in the help queue
  resolve <group>               Finish helping a group
  queue                         Show the help queue and who is being helped
  groups                        Show the groups present and their current task
  history                       Show the help requests seen in this session
  ?                             Shows this help text
  quit                          Leave the session
`)
