// Package template builds the variable context for notification templates and
// substitutes {{variable}} tokens in template text.
package template

import (
	"fmt"
	"strings"
	"time"

	"dealer-workers/internal/clock"
)

// Variable is one of the fixed placeholder names a template may reference.
type Variable string

const (
	VarUserName          Variable = "nome_usuario"
	VarClientName        Variable = "nome_cliente"
	VarVehicle           Variable = "veiculo"
	VarChecklistStatus   Variable = "status_checklist"
	VarExpirationDate    Variable = "data_vencimento"
	VarPlanName          Variable = "nome_plano"
	VarOfferName         Variable = "nome_oferta"
	VarAccountStatus     Variable = "status_conta"
	VarPasswordRecovery  Variable = "link_recuperar_senha"
	VarPasswordResetLink Variable = "link_reset_senha"
	VarPlansLink         Variable = "link_planos"
)

var allVariables = []Variable{
	VarUserName,
	VarClientName,
	VarVehicle,
	VarChecklistStatus,
	VarExpirationDate,
	VarPlanName,
	VarOfferName,
	VarAccountStatus,
	VarPasswordRecovery,
	VarPasswordResetLink,
	VarPlansLink,
}

// Variables returns the supported variables in a stable order.
func Variables() []Variable {
	out := make([]Variable, len(allVariables))
	copy(out, allVariables)
	return out
}

// Placeholder returns the literal token for v, e.g. "{{nome_usuario}}".
func (v Variable) Placeholder() string {
	return "{{" + string(v) + "}}"
}

var checklistStatusLabels = map[string]string{
	"pendente":     "Pendente",
	"em_andamento": "Em andamento",
	"concluido":    "Concluído",
	"cancelado":    "Cancelado",
}

var accountStatusLabels = map[string]string{
	"ativo":     "Ativo",
	"trial":     "Período de teste",
	"vencido":   "Vencido",
	"cancelado": "Cancelado",
	"bloqueado": "Bloqueado",
}

// Vehicle describes the vehicle a notification refers to.
type Vehicle struct {
	Brand string
	Model string
	Year  string
}

func (v Vehicle) String() string {
	return strings.Join(strings.Fields(v.Brand+" "+v.Model+" "+v.Year), " ")
}

// Facts are the source values a context is built from. Zero values mean absent.
type Facts struct {
	UserName          string
	ClientName        string
	Vehicle           *Vehicle
	ChecklistStatus   string
	ExpirationDate    *time.Time
	PlanName          string
	OfferName         string
	AccountStatus     string
	PasswordResetLink string
	PlansLink         string
}

// Context maps every supported variable to its rendered value.
type Context map[Variable]string

// BuildContext renders facts into a Context. Every supported variable is present;
// missing facts render as the empty string.
func BuildContext(f Facts) Context {
	ctx := make(Context, len(allVariables))
	for _, v := range allVariables {
		ctx[v] = ""
	}

	ctx[VarUserName] = f.UserName
	ctx[VarClientName] = f.ClientName
	if f.Vehicle != nil {
		ctx[VarVehicle] = f.Vehicle.String()
	}
	ctx[VarChecklistStatus] = label(checklistStatusLabels, f.ChecklistStatus)
	if f.ExpirationDate != nil {
		ctx[VarExpirationDate] = FormatDate(*f.ExpirationDate)
	}
	ctx[VarPlanName] = f.PlanName
	ctx[VarOfferName] = f.OfferName
	ctx[VarAccountStatus] = label(accountStatusLabels, f.AccountStatus)
	ctx[VarPasswordRecovery] = f.PasswordResetLink
	ctx[VarPasswordResetLink] = f.PasswordResetLink
	ctx[VarPlansLink] = f.PlansLink

	return ctx
}

// label maps a status through a label table; unmapped values pass through.
func label(labels map[string]string, value string) string {
	if l, ok := labels[value]; ok {
		return l
	}
	return value
}

// FormatDate renders the platform day of t (see clock.DayOf) as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	d := clock.DayOf(t)
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}
