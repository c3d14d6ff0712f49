package domain

// Tone is the colour family a status badge is drawn with.
type Tone string

const (
	ToneRed    Tone = "red"
	ToneYellow Tone = "yellow"
	ToneGreen  Tone = "green"
	ToneBlue   Tone = "blue"
	ToneGray   Tone = "gray"
)

// Presentation describes how a status is shown to staff.
type Presentation struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
	Icon  string `json:"icon"`
}

// Action is a button a staff view may offer for an order.
type Action struct {
	Field  string `json:"field"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Tone   Tone   `json:"tone"`
}

var statusPresentation = map[Status]Presentation{
	StatusPending:   {Label: "Pendente", Tone: ToneRed, Icon: "alert-circle"},
	StatusPreparing: {Label: "Em Preparação", Tone: ToneYellow, Icon: "clock"},
	StatusCompleted: {Label: "Concluído", Tone: ToneGreen, Icon: "check-circle"},
	StatusCancelled: {Label: "Cancelado", Tone: ToneGray, Icon: "x-circle"},
}

var deliveryPresentation = map[DeliveryStatus]Presentation{
	DeliveryWaiting:   {Label: "Aguardando", Tone: ToneGray, Icon: "clock"},
	DeliveryAssigned:  {Label: "Atribuído", Tone: ToneBlue, Icon: "package"},
	DeliveryInTransit: {Label: "Em Trânsito", Tone: ToneYellow, Icon: "truck"},
	DeliveryDelivered: {Label: "Entregue", Tone: ToneGreen, Icon: "check-circle"},
}

var statusActionLabels = map[Status]string{
	StatusPreparing: "Preparar",
	StatusCompleted: "Concluir",
	StatusCancelled: "Cancelar",
}

var deliveryActionLabels = map[DeliveryStatus]string{
	DeliveryAssigned:  "Atribuir Entregador",
	DeliveryInTransit: "Iniciar Entrega",
	DeliveryDelivered: "Confirmar Entrega",
}

var unknownPresentation = Presentation{Label: "Desconhecido", Tone: ToneGray, Icon: "help-circle"}

func (s Status) Presentation() Presentation {
	if p, ok := statusPresentation[s]; ok {
		return p
	}
	return unknownPresentation
}

func (s DeliveryStatus) Presentation() Presentation {
	if p, ok := deliveryPresentation[s]; ok {
		return p
	}
	return unknownPresentation
}

// StatusActions lists the kitchen buttons for s. Only legal successors are
// ever offered.
func StatusActions(s Status) []Action {
	next := statusTransitions[s]
	actions := make([]Action, 0, len(next))
	for _, target := range next {
		tone := target.Presentation().Tone
		if target == StatusCancelled {
			tone = ToneRed
		}
		actions = append(actions, Action{
			Field:  FieldStatus,
			Target: string(target),
			Label:  statusActionLabels[target],
			Tone:   tone,
		})
	}
	return actions
}

// DeliveryActions lists the delivery buttons for an order. Nothing is
// offered before the kitchen completes it.
func DeliveryActions(o Order) []Action {
	if o.Status != StatusCompleted {
		return []Action{}
	}
	next := deliveryTransitions[o.DeliveryStatus]
	actions := make([]Action, 0, len(next))
	for _, target := range next {
		actions = append(actions, Action{
			Field:  FieldDeliveryStatus,
			Target: string(target),
			Label:  deliveryActionLabels[target],
			Tone:   target.Presentation().Tone,
		})
	}
	return actions
}
