package notify

import (
	"fmt"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/model"
)

// Content 通知的标题与正文
type Content struct {
	Title   string
	Message string
}

func meta(n model.NotificationModel, key string) string {
	if v, ok := n.Metadata[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}

// Render 根据类型与 metadata 生成展示文本
func Render(n model.NotificationModel) Content {
	title := meta(n, "flowTitle")
	switch n.Type {
	case model.NotificationAccountCreated:
		name := meta(n, "username")
		if name == "" {
			name = "User"
		}
		return Content{
			Title:   "Welcome to Titaflow",
			Message: fmt.Sprintf("Welcome %s! Your account has been successfully created. You can now create your flow or start contributing to a funding flow.", name),
		}
	case model.NotificationNewContribution:
		return Content{
			Title:   "New Contribution",
			Message: fmt.Sprintf("You received a contribution of %s %s to your flow %q.", meta(n, "amount"), meta(n, "currency"), title),
		}
	case model.NotificationFlowGoalReached:
		msg := fmt.Sprintf("Congratulations! Your flow %q has reached its funding goal of %s %s.", title, meta(n, "goalAmount"), meta(n, "currency"))
		if raised := meta(n, "totalRaised"); raised != "" {
			msg += fmt.Sprintf(" Total raised: %s %s.", raised, meta(n, "currency"))
		}
		switch count := meta(n, "contributorCount"); count {
		case "", "0":
		case "1":
			msg += " 1 contributor helped make this possible."
		default:
			msg += fmt.Sprintf(" %s contributors helped make this possible.", count)
		}
		return Content{Title: "Funding Goal Reached!", Message: msg}
	case model.NotificationFlowCreated:
		msg := fmt.Sprintf("Your flow %q has been created and is now live!", title)
		if goal := meta(n, "goalAmount"); goal != "" {
			msg += fmt.Sprintf(" Funding goal: %s %s.", goal, meta(n, "currency"))
		}
		return Content{Title: "Flow Created Successfully", Message: msg}
	case model.NotificationFlowCanceled:
		msg := fmt.Sprintf("The flow %q has been canceled.", title)
		if reason := meta(n, "reason"); reason != "" {
			msg += " Reason: " + reason
		}
		return Content{Title: "Flow Canceled", Message: msg}
	case model.NotificationFlowCompleted:
		return Content{
			Title:   "Flow Completed Successfully",
			Message: fmt.Sprintf("The flow %q has been marked as completed.", title),
		}
	case model.NotificationMilestoneApproved:
		return Content{
			Title:   "Milestone Approved",
			Message: fmt.Sprintf("Milestone #%s of %q has been approved.", meta(n, "milestone"), title),
		}
	case model.NotificationMilestoneRejected:
		return Content{
			Title:   "Milestone Rejected",
			Message: fmt.Sprintf("Milestone #%s of %q has been rejected.", meta(n, "milestone"), title),
		}
	case model.NotificationNewUpdate:
		return Content{
			Title:   "New Flow Update",
			Message: fmt.Sprintf("%s has posted a new update on %q.", meta(n, "creatorName"), title),
		}
	default:
		return Content{Title: "Notification", Message: "You have a new notification."}
	}
}
